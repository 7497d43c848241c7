package shortener

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// envelopeVersion changes whenever cachedRecord changes shape.
const envelopeVersion = 1

type envelope struct {
	Version uint         `cbor:"v"`
	Record  cachedRecord `cbor:"r"`
}

type cachedRecord struct {
	ID        string    `cbor:"id"`
	Code      string    `cbor:"code"`
	LongURL   string    `cbor:"longUrl"`
	ShortURL  string    `cbor:"shortUrl"`
	CreatedAt time.Time `cbor:"createdAtUtc"`
}

var encMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}

	return mode
}()

// EncodeRecord serializes a record into the versioned cache envelope.
func EncodeRecord(shortURL *ShortenedURL) ([]byte, error) {
	return encMode.Marshal(envelope{
		Version: envelopeVersion,
		Record: cachedRecord{
			ID:        shortURL.ID.String(),
			Code:      string(shortURL.Code),
			LongURL:   shortURL.LongURL,
			ShortURL:  shortURL.ShortURL,
			CreatedAt: shortURL.CreatedAt.UTC(),
		},
	})
}

// DecodeRecord parses a cache envelope. Values that cannot be read by this version
// return ErrStaleEntry.
func DecodeRecord(data []byte) (*ShortenedURL, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaleEntry, err)
	}

	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: envelope version %d", ErrStaleEntry, env.Version)
	}

	id, err := uuid.Parse(env.Record.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaleEntry, err)
	}

	return &ShortenedURL{
		ID:        id,
		Code:      Code(env.Record.Code),
		LongURL:   env.Record.LongURL,
		ShortURL:  env.Record.ShortURL,
		CreatedAt: env.Record.CreatedAt.UTC(),
	}, nil
}
