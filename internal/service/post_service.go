package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/repository"
	"github.com/maheshrc27/publishflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Cancel(ctx context.Context, userID, postID int64) error
	Remove(ctx context.Context, userID, postID int64) error
	ListLogs(ctx context.Context, userID, postID int64) ([]*models.PostLog, error)
}

type postService struct {
	db          *sql.DB
	pr          repository.PostRepository
	sa          repository.SocialAccountRepository
	lr          repository.PostLogRepository
	media       *MediaService
	maxAttempts int
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	sa repository.SocialAccountRepository,
	lr repository.PostLogRepository,
	media *MediaService,
	maxAttempts int) PostService {
	return &postService{
		db:          db,
		pr:          pr,
		sa:          sa,
		lr:          lr,
		media:       media,
		maxAttempts: maxAttempts,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, 0, err
	}

	var platforms []string
	if err := json.Unmarshal([]byte(pc.Platforms), &platforms); err != nil {
		err = fmt.Errorf("invalid platforms format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}
	if len(platforms) == 0 {
		err := errors.New("no target platforms selected")
		slog.Error(err.Error())
		return 0, 0, err
	}

	var accountIDs []int64
	if pc.AccountIDs != "" {
		if err := json.Unmarshal([]byte(pc.AccountIDs), &accountIDs); err != nil {
			err = fmt.Errorf("invalid account ids format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
		for _, accountID := range accountIDs {
			exists, err := s.sa.CheckByUserID(ctx, accountID, userID)
			if err != nil {
				return 0, 0, fmt.Errorf("error checking social account %d: %w", accountID, err)
			}
			if !exists {
				return 0, 0, fmt.Errorf("social account %d does not exist", accountID)
			}
		}
	}

	var platformSettings map[string]map[string]any
	if pc.PlatformSettings != "" {
		if err := json.Unmarshal([]byte(pc.PlatformSettings), &platformSettings); err != nil {
			err = fmt.Errorf("invalid platform settings format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}

	scheduledTime := time.Now()
	if pc.ScheduledTime != "" {
		var err error
		scheduledTime, err = time.Parse("2006-01-02T15:04", pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}

	mediaURLs, mediaType, err := s.processFiles(ctx, userID, files)
	if err != nil {
		return 0, 0, err
	}
	if mediaType == models.MediaTypeNone && pc.LinkURL != "" {
		mediaType = models.MediaTypeLink
	}

	status := models.PostStatusScheduled
	if pc.Draft {
		status = models.PostStatusDraft
	}

	post := models.Post{
		UserID:           userID,
		Content:          pc.Content,
		Title:            pc.Title,
		MediaURLs:        mediaURLs,
		MediaType:        mediaType,
		LinkURL:          pc.LinkURL,
		Platforms:        platforms,
		AccountIDs:       accountIDs,
		PlatformSettings: platformSettings,
		ScheduledAt:      scheduledTime,
		Status:           status,
		MaxAttempts:      s.maxAttempts,
	}

	postID, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	delay := time.Until(scheduledTime)
	if delay < 0 {
		delay = 0
	}
	if pc.Draft {
		delay = 0
	}

	return postID, delay, nil
}

func (s *postService) processFiles(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]string, string, error) {
	if len(files) == 0 {
		return nil, models.MediaTypeNone, nil
	}

	allowedTypes := map[string]string{
		"mp4": models.MediaTypeVideo, "mov": models.MediaTypeVideo,
		"jpeg": models.MediaTypeImage, "png": models.MediaTypeImage, "jpg": models.MediaTypeImage,
	}

	var urls []string
	mediaType := models.MediaTypeNone

	for _, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return nil, "", fmt.Errorf("error opening file: %w", err)
		}

		fileBytes, err := io.ReadAll(fileContent)
		fileContent.Close()
		if err != nil {
			return nil, "", fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return nil, "", fmt.Errorf("unsupported file type: %w", err)
		}
		kind, ok := allowedTypes[fileType.Extension]
		if !ok {
			return nil, "", fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		key, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return nil, "", err
		}

		url, err := s.media.Upload(ctx, key, fileBytes, fileType.MIME.Value)
		if err != nil {
			return nil, "", fmt.Errorf("error uploading file: %w", err)
		}

		urls = append(urls, url)
		mediaType = kind
	}

	if len(urls) > 1 {
		mediaType = models.MediaTypeCarousel
	}

	return urls, mediaType, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

// Cancel honors cancellation only before publishing starts; an in-flight
// attempt runs to completion regardless.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return err
	}

	cancelled, err := s.pr.Cancel(ctx, postID)
	if err != nil {
		return fmt.Errorf("error cancelling post: %w", err)
	}
	if !cancelled {
		err = errors.New("post can no longer be cancelled")
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return err
	}

	err := s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}

func (s *postService) ListLogs(ctx context.Context, userID, postID int64) ([]*models.PostLog, error) {
	if err := s.checkOwnership(ctx, postID, userID); err != nil {
		return nil, err
	}

	logs, err := s.lr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error listing post logs")
	}
	return logs, nil
}

func (s *postService) checkOwnership(ctx context.Context, postID, userID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return nil
}
