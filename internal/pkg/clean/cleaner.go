package clean

import (
	"context"
	"strconv"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"github.com/voxpage/voxpage/internal/pkg/api"
	"github.com/voxpage/voxpage/internal/pkg/persistence"
)

// DB provides records for cleaning
type DB interface {
	GetFile(ctx context.Context, id int64) (*persistence.File, error)
	ListConversionsBySource(ctx context.Context, fileID, userID int64) ([]*persistence.Conversion, error)
	DeleteConversion(ctx context.Context, id int64) error
	DeleteFile(ctx context.Context, id int64) error
}

// Filer deletes stored files by name
type Filer interface {
	Delete(ctx context.Context, name string) error
}

// Cleaner removes one guest upload with all dependent data:
// audio of referencing guest conversions (best effort), conversion rows,
// the uploaded bytes, the file row - in that order.
// Deletes are idempotent, a missing row or file is not an error.
type Cleaner struct {
	db      DB
	uploads Filer
	audio   Filer
}

// NewCleaner creates Cleaner instance
func NewCleaner(db DB, uploads, audio Filer) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("no DB")
	}
	if uploads == nil {
		return nil, errors.New("no uploads filer")
	}
	if audio == nil {
		return nil, errors.New("no audio filer")
	}
	return &Cleaner{db: db, uploads: uploads, audio: audio}, nil
}

// Clean drops all data of the guest upload with the given ID
func (c *Cleaner) Clean(ctx context.Context, ID string) error {
	id, err := strconv.ParseInt(ID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "wrong ID '%s'", ID)
	}
	file, err := c.db.GetFile(ctx, id)
	if err != nil {
		return errors.Wrap(err, "can't load file")
	}
	if file == nil {
		goapp.Log.Info().Str("ID", ID).Msg("already gone")
		return nil
	}
	if file.UserID != api.GuestID {
		goapp.Log.Warn().Str("ID", ID).Int64("owner", file.UserID).Msg("not a guest file, skip")
		return nil
	}

	convs, err := c.db.ListConversionsBySource(ctx, id, api.GuestID)
	if err != nil {
		return errors.Wrap(err, "can't load conversions")
	}
	for _, conv := range convs {
		if name := audioFileName(conv.AudioPath); name != "" {
			if err := c.audio.Delete(ctx, name); err != nil {
				goapp.Log.Error().Err(err).Int64("conversion", conv.ID).Msg("can't delete audio")
			}
		}
		if err := c.db.DeleteConversion(ctx, conv.ID); err != nil {
			return errors.Wrap(err, "can't delete conversion")
		}
		goapp.Log.Info().Int64("conversion", conv.ID).Msg("deleted")
	}

	if err := c.uploads.Delete(ctx, file.Path); err != nil {
		return errors.Wrap(err, "can't delete upload")
	}
	if err := c.db.DeleteFile(ctx, id); err != nil {
		return errors.Wrap(err, "can't delete file record")
	}
	goapp.Log.Info().Str("ID", ID).Msg("deleted")
	return nil
}

// audioFileName takes the stored name out of an audio URL like /api/audio/xxx.mp3
func audioFileName(urlPath string) string {
	for i := len(urlPath) - 1; i >= 0; i-- {
		if urlPath[i] == '/' {
			return urlPath[i+1:]
		}
	}
	return urlPath
}
