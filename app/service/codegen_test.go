package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
)

type racingCodeWriter struct {
	*serviceCodeRepo
	failFirstCreate bool
}

func (w *racingCodeWriter) Create(ctx context.Context, item *entity.InviteCode) error {
	if w.failFirstCreate {
		w.failFirstCreate = false
		return repository.ErrInviteCodeAlreadyExists
	}
	return w.serviceCodeRepo.Create(ctx, item)
}

func TestNewInviteCodeUsesAlphabet(t *testing.T) {
	code, err := newInviteCode(bytes.NewReader(bytes.Repeat([]byte{0, 31, 32, 255}, 3)))
	if err != nil {
		t.Fatalf("new invite code failed: %v", err)
	}
	if code != "A9A9A9A9A9A9" {
		t.Fatalf("unexpected code: %s", code)
	}
	for _, r := range "01IO" {
		if strings.ContainsRune(inviteCodeAlphabet, r) {
			t.Fatalf("alphabet must not contain %q", r)
		}
	}
}

func TestGenerateSkipsExistingCodes(t *testing.T) {
	codes := newServiceCodeRepo()
	codes.add(&entity.InviteCode{Code: "AAAAAAAAAAAA"})
	gen := NewCodeGenerator(codes)
	gen.random = bytes.NewReader(append(bytes.Repeat([]byte{0}, inviteCodeLength), bytes.Repeat([]byte{1}, inviteCodeLength)...))

	code, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if code != "BBBBBBBBBBBB" {
		t.Fatalf("expected second draw, got %s", code)
	}
}

func TestMintRetriesOnDuplicateInsert(t *testing.T) {
	writer := &racingCodeWriter{serviceCodeRepo: newServiceCodeRepo(), failFirstCreate: true}
	gen := NewCodeGenerator(writer)

	item, err := gen.Mint(context.Background(), entity.InviteCode{MembershipType: entity.MembershipMonthly, Status: entity.InviteCodeStatusUnused})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if writer.get(item.Code) == nil {
		t.Fatal("expected minted code to be stored")
	}
	if writer.count() != 1 {
		t.Fatalf("expected one stored code, got %d", writer.count())
	}
}
