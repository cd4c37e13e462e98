package publisher

import (
	"log/slog"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/pkg/utils"
)

// Credentials holds decrypted tokens. Stored tokens stay encrypted at rest;
// plaintext only exists in a Credentials value obtained at the point of use,
// so its lifetime stays visible to the reader.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func DecryptCredentials(account *models.SocialAccount, secretKey string) (Credentials, error) {
	var creds Credentials

	if account.AccessToken != "" {
		accessToken, err := utils.Decrypt(account.AccessToken, []byte(secretKey))
		if err != nil {
			slog.Info(err.Error())
			return Credentials{}, err
		}
		creds.AccessToken = accessToken
	}

	if account.RefreshToken != "" {
		refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(secretKey))
		if err != nil {
			slog.Info(err.Error())
			return Credentials{}, err
		}
		creds.RefreshToken = refreshToken
	}

	return creds, nil
}
