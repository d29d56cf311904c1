package storage

import (
	"context"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Cloudinary stores delivered-work payloads in durable object storage.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
	log zerolog.Logger
}

func New(url string, log zerolog.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld, log: log}, nil
}

// Upload pushes the payload and returns its public id and secure URL. An
// empty public id in the result signals a failed upload.
func (c *Cloudinary) Upload(ctx context.Context, payload, name string) (string, string, error) {
	params := uploader.UploadParams{}
	if name != "" {
		params.PublicID = name
	}
	res, err := c.cld.Upload.Upload(ctx, payload, params)
	if err != nil {
		return "", "", err
	}
	return res.PublicID, res.SecureURL, nil
}
