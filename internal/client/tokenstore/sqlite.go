package tokenstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/facegate/internal/common"
	"github.com/dmitrijs2005/facegate/internal/cryptox"
	"github.com/dmitrijs2005/facegate/internal/dbx"
)

const (
	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
	keySalt    = "store_salt"
)

// SQLiteStore persists the pair in the metadata table so a session survives
// a restart. With a sealer configured, values are encrypted at rest.
type SQLiteStore struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

// NewSQLiteStore returns a store that keeps tokens in plaintext.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// NewSealedSQLiteStore returns a store that seals tokens with a key derived
// from secret. The salt is generated on first use and kept in the same table.
func NewSealedSQLiteStore(ctx context.Context, db *sql.DB, secret []byte) (*SQLiteStore, error) {
	repo := metadata.NewSQLiteRepository(db)

	salt, err := repo.Get(ctx, keySalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		if err := repo.Set(ctx, keySalt, salt); err != nil {
			return nil, err
		}
	}

	sealer, err := cryptox.NewSealer(secret, salt)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, sealer: sealer}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, tokens models.Tokens) error {
	if err := validate(tokens); err != nil {
		return err
	}
	access, err := s.seal(tokens.Access)
	if err != nil {
		return err
	}
	refresh, err := s.seal(tokens.Refresh)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccess, access); err != nil {
			return err
		}
		if tokens.Refresh == "" {
			return repo.Delete(ctx, keyRefresh)
		}
		return repo.Set(ctx, keyRefresh, refresh)
	})
}

func (s *SQLiteStore) Get(ctx context.Context) (models.Tokens, error) {
	var tokens models.Tokens
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		access, err := repo.Get(ctx, keyAccess)
		if err != nil {
			return err
		}
		refresh, err := repo.Get(ctx, keyRefresh)
		if err != nil {
			return err
		}
		if tokens.Access, err = s.open(access); err != nil {
			return err
		}
		tokens.Refresh, err = s.open(refresh)
		return err
	})
	if err != nil {
		return models.Tokens{}, fmt.Errorf("read token pair: %w", err)
	}
	return tokens, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, keyAccess); err != nil {
			return err
		}
		return repo.Delete(ctx, keyRefresh)
	})
}

func (s *SQLiteStore) HasAccess(ctx context.Context) bool {
	tokens, err := s.Get(ctx)
	return err == nil && tokens.Access != ""
}

func (s *SQLiteStore) seal(value string) ([]byte, error) {
	if s.sealer == nil || value == "" {
		return []byte(value), nil
	}
	return s.sealer.Seal([]byte(value))
}

func (s *SQLiteStore) open(value []byte) (string, error) {
	if s.sealer == nil || len(value) == 0 {
		return string(value), nil
	}
	plain, err := s.sealer.Open(value)
	if err != nil {
		return "", fmt.Errorf("unseal token: %w", err)
	}
	return string(plain), nil
}
