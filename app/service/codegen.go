package service

import (
	"context"
	"crypto/rand"
	"errors"
	"io"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
)

const (
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength   = 12
)

type inviteCodeWriter interface {
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, code *entity.InviteCode) error
}

// CodeGenerator mints invite codes that are unique in the store.
type CodeGenerator struct {
	codes  inviteCodeWriter
	random io.Reader
}

func NewCodeGenerator(codes inviteCodeWriter) *CodeGenerator {
	return &CodeGenerator{codes: codes, random: rand.Reader}
}

// Generate returns a code that is not yet stored.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := newInviteCode(g.random)
		if err != nil {
			return "", err
		}
		exists, err := g.codes.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// Mint persists item under a freshly generated code. A duplicate key on
// insert means another writer won the race and a new code is drawn.
func (g *CodeGenerator) Mint(ctx context.Context, item entity.InviteCode) (*entity.InviteCode, error) {
	for {
		code, err := g.Generate(ctx)
		if err != nil {
			return nil, err
		}
		item.Code = code
		if err := g.codes.Create(ctx, &item); err != nil {
			if errors.Is(err, repository.ErrInviteCodeAlreadyExists) {
				continue
			}
			return nil, err
		}
		return &item, nil
	}
}

func newInviteCode(random io.Reader) (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", err
	}
	// 256 is a multiple of the alphabet size, so the modulo is unbiased.
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}
