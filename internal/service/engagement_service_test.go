package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
)

func TestEngagementService_Subscribe(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEngagementService(gdb)
	ctx := context.Background()
	createUser(t, gdb, "reader", false)

	if _, err := svc.Subscribe(ctx, "not-an-email"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Subscribe(ctx, "stranger@example.com"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}

	created, err := svc.Subscribe(ctx, "Reader@Example.com")
	if err != nil || !created {
		t.Fatalf("expected new subscription, got %v %v", created, err)
	}
	created, err = svc.Subscribe(ctx, "reader@example.com")
	if err != nil || created {
		t.Fatalf("expected existing subscription, got %v %v", created, err)
	}
	created, err = svc.Subscribe(ctx, "  READER@example.com ")
	if err != nil || created {
		t.Fatalf("expected padded email to match existing subscription, got %v %v", created, err)
	}

	count, err := svc.SubscriberCount(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected one subscriber, got %d %v", count, err)
	}
}

func TestEngagementService_SubmitContact(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewEngagementService(gdb)
	ctx := context.Background()
	createUser(t, gdb, "reader", false)

	_, err := svc.SubmitContact(ctx, ContactInput{})
	var ae *apperr.Error
	if !errors.As(err, &ae) || len(ae.Fields) != 3 {
		t.Fatalf("expected three field problems, got %v", err)
	}
	if _, err := svc.SubmitContact(ctx, ContactInput{Name: "X", Email: "stranger@example.com", Message: "hi"}); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}

	contact, err := svc.SubmitContact(ctx, ContactInput{Name: "Reader", Email: "reader@example.com", Message: "<b>Hello</b> there"})
	if err != nil {
		t.Fatalf("submit contact: %v", err)
	}
	if strings.Contains(contact.Message, "<b>") || contact.ID == 0 {
		t.Fatalf("unexpected contact: %+v", contact)
	}

	contact, err = svc.SubmitContact(ctx, ContactInput{Name: "Tom's <i>desk</i>", Email: "reader@example.com", Message: "Tom's post & <b>mine</b>"})
	if err != nil {
		t.Fatalf("submit contact: %v", err)
	}
	if contact.Name != "Tom's desk" || contact.Message != "Tom's post & mine" {
		t.Fatalf("expected plain text without entities, got name %q message %q", contact.Name, contact.Message)
	}
	var stored db.Contact
	if err := gdb.First(&stored, contact.ID).Error; err != nil {
		t.Fatalf("load contact: %v", err)
	}
	if stored.Message != "Tom's post & mine" {
		t.Fatalf("expected stored message without entities, got %q", stored.Message)
	}
}
