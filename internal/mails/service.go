// Package mails is the mailbox service used by the front ends. It turns
// raw fetch data from the IMAP session into mail records, sorts and pages
// them, and runs best-effort move and delete operations.
package mails

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// DefaultPageSize is the number of mails per page when none is given.
const DefaultPageSize = 25

// ErrBatchFailed is returned by DeleteMails when no UID could be deleted.
var ErrBatchFailed = errors.New("all operations in batch failed")

// Session is the subset of the IMAP session used by the service.
type Session interface {
	FetchAll(ctx context.Context, mbox mailbox.ID) ([]*mail.Raw, error)
	FetchByUID(ctx context.Context, uid uint32, mbox mailbox.ID) (*mail.Raw, error)
	MoveByUID(ctx context.Context, uid uint32, from, to mailbox.ID) (mail.Outcome, error)
	DeleteByUID(ctx context.Context, uid uint32, mbox mailbox.ID) (mail.Outcome, error)
	StatusCount(ctx context.Context, mbox mailbox.ID) (int, error)
}

// Service lists and administers the mails of the known mailboxes.
type Service interface {
	ListMails(ctx context.Context, mbox mailbox.ID, page Page) (*Listing, error)
	GetMail(ctx context.Context, uid uint32, mbox mailbox.ID) (mail.Record, error)
	MoveMail(ctx context.Context, uid uint32, from, to mailbox.ID) (mail.Outcome, error)
	DeleteMails(ctx context.Context, uids []uint32, mbox mailbox.ID) (*BatchResult, error)
	ListAllMailboxes(ctx context.Context) (map[mailbox.ID][]mail.Record, error)
	Count(ctx context.Context, mbox mailbox.ID) (int, error)
	Counts(ctx context.Context) (map[mailbox.ID]int, error)
}

// Page selects a slice of a listing. Numbers start at 1.
type Page struct {
	Number int
	Size   int
}

// Listing is one page of a mailbox, newest first.
type Listing struct {
	Mailbox  mailbox.ID
	Mails    []mail.Record
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// ItemResult is the outcome for a single UID of a batch.
type ItemResult struct {
	UID     uint32
	Outcome mail.Outcome
	Err     error
}

// BatchResult holds one ItemResult per requested UID, in request order.
type BatchResult struct {
	Items []ItemResult
}

// Outcomes maps each UID to its outcome.
func (b *BatchResult) Outcomes() map[uint32]mail.Outcome {
	out := make(map[uint32]mail.Outcome, len(b.Items))
	for _, item := range b.Items {
		out[item.UID] = item.Outcome
	}
	return out
}

// Failed returns the items that did not succeed with an error.
func (b *BatchResult) Failed() []ItemResult {
	var failed []ItemResult
	for _, item := range b.Items {
		if item.Outcome == mail.Failed {
			failed = append(failed, item)
		}
	}
	return failed
}

// Options configures the service.
type Options struct {
	// Location is the zone mail dates are converted to. Nil means local.
	Location        *time.Location
	DefaultPageSize int
}

type service struct {
	session  Session
	resolver *mailbox.Resolver
	loc      *time.Location
	pageSize int
}

// NewService returns the mailbox service backed by session. The resolver
// defines the mailboxes covered by ListAllMailboxes and Counts.
func NewService(session Session, resolver *mailbox.Resolver, opts Options) Service {
	if resolver == nil {
		resolver = mailbox.NewResolver()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = DefaultPageSize
	}
	return &service{
		session:  session,
		resolver: resolver,
		loc:      opts.Location,
		pageSize: opts.DefaultPageSize,
	}
}

func (s *service) records(ctx context.Context, mbox mailbox.ID) ([]mail.Record, error) {
	raws, err := s.session.FetchAll(ctx, mbox)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", mbox, err)
	}

	records := make([]mail.Record, 0, len(raws))
	for _, raw := range raws {
		records = append(records, mail.New(raw, mbox, s.loc))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date().After(records[j].Date())
	})
	return records, nil
}

func (s *service) ListMails(ctx context.Context, mbox mailbox.ID, page Page) (*Listing, error) {
	records, err := s.records(ctx, mbox)
	if err != nil {
		return nil, err
	}

	number := page.Number
	if number < 1 {
		number = 1
	}
	size := page.Size
	if size < 1 {
		size = s.pageSize
	}

	listing := &Listing{
		Mailbox:  mbox,
		Mails:    []mail.Record{},
		Total:    len(records),
		Page:     number,
		PageSize: size,
	}

	start := (number - 1) * size
	if start >= len(records) {
		return listing, nil
	}
	end := min(start+size, len(records))

	listing.Mails = records[start:end]
	listing.HasMore = end < len(records)
	return listing, nil
}

func (s *service) GetMail(ctx context.Context, uid uint32, mbox mailbox.ID) (mail.Record, error) {
	raw, err := s.session.FetchByUID(ctx, uid, mbox)
	if err != nil {
		return mail.Empty(mbox), fmt.Errorf("fetching %s/%d: %w", mbox, uid, err)
	}
	return mail.New(raw, mbox, s.loc), nil
}

func (s *service) MoveMail(ctx context.Context, uid uint32, from, to mailbox.ID) (mail.Outcome, error) {
	if from == to {
		return mail.Skipped, nil
	}
	return s.session.MoveByUID(ctx, uid, from, to)
}

func (s *service) DeleteMails(ctx context.Context, uids []uint32, mbox mailbox.ID) (*BatchResult, error) {
	result := &BatchResult{Items: make([]ItemResult, 0, len(uids))}
	if len(uids) == 0 {
		return result, nil
	}

	var errs []error
	for _, uid := range uids {
		outcome, err := s.session.DeleteByUID(ctx, uid, mbox)
		if err != nil {
			outcome = mail.Failed
			errs = append(errs, fmt.Errorf("deleting %s/%d: %w", mbox, uid, err))
		}
		result.Items = append(result.Items, ItemResult{UID: uid, Outcome: outcome, Err: err})
	}

	if len(errs) == len(uids) {
		return result, errors.Join(append([]error{ErrBatchFailed}, errs...)...)
	}
	return result, nil
}

func (s *service) ListAllMailboxes(ctx context.Context) (map[mailbox.ID][]mail.Record, error) {
	all := make(map[mailbox.ID][]mail.Record)
	var errs []error

	for _, mbox := range s.resolver.Known() {
		records, err := s.records(ctx, mbox)
		if err != nil {
			errs = append(errs, err)
			records = []mail.Record{}
		}
		all[mbox] = records
	}

	return all, errors.Join(errs...)
}

func (s *service) Count(ctx context.Context, mbox mailbox.ID) (int, error) {
	n, err := s.session.StatusCount(ctx, mbox)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", mbox, err)
	}
	return n, nil
}

func (s *service) Counts(ctx context.Context) (map[mailbox.ID]int, error) {
	counts := make(map[mailbox.ID]int)
	var errs []error

	for _, mbox := range s.resolver.Known() {
		n, err := s.Count(ctx, mbox)
		if err != nil {
			errs = append(errs, err)
		}
		counts[mbox] = n
	}

	return counts, errors.Join(errs...)
}
