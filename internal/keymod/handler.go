package keymod

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/keybridge/internal/protocol"
)

const saltBytes = 16

// Handler interprets kernel request payloads and answers them from the
// registry. Request grammar is VERB:ALIAS with the verbs below; anything
// else is a handler-level failure, which the dispatch loop logs without
// counting it as a transport error.
type Handler struct {
	reg *Registry
	log zerolog.Logger
}

func NewHandler(reg *Registry, log zerolog.Logger) *Handler {
	return &Handler{reg: reg, log: log}
}

// HandleRequest implements the dispatch loop's handler contract. The reply
// index is overwritten by the loop, so it is left at zero here.
func (h *Handler) HandleRequest(req *protocol.Message) (*protocol.Message, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrBadRequest)
	}

	rid := uuid.NewString()
	verb, alias, err := parseRequest(req.Data)
	if err != nil {
		h.log.Debug().Str("rid", rid).Err(err).Msg("unparseable request payload")
		return nil, err
	}
	log := h.log.With().Str("rid", rid).Str("verb", verb).Str("alias", alias).Logger()

	ctx := context.Background()
	var data []byte
	switch verb {
	case "NEWKEY":
		data, err = h.newKey(ctx, alias)
	case "GETKEY":
		data, err = h.getKey(ctx, alias)
	case "STATKEY":
		data, err = h.statKey(ctx, alias)
	case "REVOKE":
		data, err = h.revoke(ctx, alias)
	default:
		err = fmt.Errorf("%w: unknown verb %q", ErrBadRequest, verb)
	}
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return nil, err
	}
	log.Debug().Msg("request served")
	return &protocol.Message{Data: data}, nil
}

func parseRequest(data []byte) (verb, alias string, err error) {
	verb, alias, ok := strings.Cut(string(data), ":")
	if !ok || verb == "" || alias == "" {
		return "", "", fmt.Errorf("%w: want VERB:ALIAS", ErrBadRequest)
	}
	return verb, alias, nil
}

func (h *Handler) newKey(ctx context.Context, alias string) ([]byte, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	rec := &KeyRecord{
		Alias:  alias,
		Module: h.reg.DefaultModule(),
		Salt:   salt,
	}
	if err := h.reg.Store().Create(ctx, rec); err != nil {
		return nil, err
	}
	return []byte("OK:" + alias), nil
}

func (h *Handler) getKey(ctx context.Context, alias string) ([]byte, error) {
	rec, err := h.reg.Store().Get(ctx, alias)
	if err != nil {
		return nil, err
	}
	mod, err := h.reg.Module(rec.Module)
	if err != nil {
		return nil, err
	}
	key, err := mod.DeriveKey(rec.Alias, rec.Salt)
	if err != nil {
		return nil, fmt.Errorf("derive key for %q: %w", alias, err)
	}
	return []byte("KEY:" + base64.StdEncoding.EncodeToString(key)), nil
}

func (h *Handler) statKey(ctx context.Context, alias string) ([]byte, error) {
	rec, err := h.reg.Store().Get(ctx, alias)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("STAT:%s:%s", rec.Module, rec.CreatedAt.Format(time.RFC3339))), nil
}

func (h *Handler) revoke(ctx context.Context, alias string) ([]byte, error) {
	removed, err := h.reg.Store().Delete(ctx, alias)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, alias)
	}
	return []byte("OK:" + alias), nil
}
