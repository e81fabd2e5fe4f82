package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/cache"
	"github.com/emrgen/grantcore/internal/codec"
	"github.com/emrgen/grantcore/internal/compress"
	"github.com/emrgen/grantcore/internal/metrics"
	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/queue"
	"github.com/emrgen/grantcore/internal/store"
)

const (
	// DefaultVersionCacheSize is the number of immutable versions kept in
	// memory.
	DefaultVersionCacheSize = 4096

	maxTransitionAttempts = 3
)

// CreateParams describes a new proposal.
type CreateParams struct {
	OwnerID       string
	Title         string
	ResearchField string
	FundingAgency string
	Keywords      []string
	Sections      map[string]string
	// CreatedBy defaults to OwnerID.
	CreatedBy string
}

// NewDocumentService creates a new DocumentService. A nil cache or publisher
// disables that concern.
func NewDocumentService(store store.Store, compress compress.Compress, heads cache.DocumentCache, publisher queue.Publisher) *DocumentService {
	if heads == nil {
		heads = cache.NewNopDocumentCache()
	}
	if publisher == nil {
		publisher = queue.NewNopPublisher()
	}
	versions, _ := lru.New[uuid.UUID, *model.Version](DefaultVersionCacheSize)

	return &DocumentService{
		store:     store,
		compress:  compress,
		cache:     heads,
		publisher: publisher,
		versions:  versions,
	}
}

// DocumentService owns the head of every proposal and its append-only chain
// of versions. Every write is a compare-and-swap against the caller's
// expected head.
type DocumentService struct {
	store     store.Store
	compress  compress.Compress
	cache     cache.DocumentCache
	publisher queue.Publisher
	versions  *lru.Cache[uuid.UUID, *model.Version]
}

// Create stores a draft with its first version.
func (d *DocumentService) Create(ctx context.Context, params CreateParams) (*model.Document, error) {
	if strings.TrimSpace(params.OwnerID) == "" {
		d.record("create", ErrInvalidArgument)
		return nil, invalidArgument("owner id is required")
	}

	createdBy := params.CreatedBy
	if createdBy == "" {
		createdBy = params.OwnerID
	}

	now := time.Now().UTC()
	docID := uuid.New()
	first, err := d.newVersion(docID, 1, nil, params.Sections, createdBy, now)
	if err != nil {
		d.record("create", err)
		return nil, err
	}

	doc := &model.Document{
		ID:            docID,
		HeadVersionID: first.ID,
		HeadSequence:  first.Sequence,
		OwnerID:       params.OwnerID,
		State:         model.StateDraft,
		Title:         params.Title,
		ResearchField: params.ResearchField,
		FundingAgency: params.FundingAgency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc.SetKeywords(params.Keywords)

	if err := d.store.CreateDocument(ctx, doc, first); err != nil {
		d.record("create", err)
		return nil, fmt.Errorf("create document: %w", err)
	}

	d.versions.Add(first.ID, first.Clone())
	d.refresh(ctx, doc)
	d.publish(ctx, queue.EventVersionCommitted, doc)
	d.record("create", nil)

	logrus.Infof("created document %s for owner %s", doc.ID, doc.OwnerID)
	return doc, nil
}

// Update commits sections as the successor of expectedVersionID. It fails
// with a *VersionConflictError when expectedVersionID is not the head. When
// the sections fingerprint equals the head's, the head is returned and no
// version is written.
func (d *DocumentService) Update(ctx context.Context, docID, expectedVersionID uuid.UUID, sections map[string]string, createdBy string) (*model.Version, error) {
	doc, err := d.store.GetDocument(ctx, docID)
	if err != nil {
		d.record("update", err)
		return nil, err
	}

	if err := checkWritable(doc); err != nil {
		d.record("update", err)
		return nil, err
	}
	if doc.HeadVersionID != expectedVersionID {
		err := conflict(doc, expectedVersionID)
		d.record("update", err)
		return nil, err
	}

	blob, fingerprint, err := codec.Encode(sections)
	if err != nil {
		d.record("update", err)
		return nil, err
	}

	head, err := d.GetVersion(ctx, doc.HeadVersionID)
	if err != nil {
		d.record("update", err)
		return nil, err
	}
	if head.Fingerprint == fingerprint.String() {
		metrics.DocumentWrites.WithLabelValues("update", "noop").Inc()
		return head, nil
	}

	parent := head.ID
	next, err := d.versionFromBlob(docID, head.Sequence+1, &parent, blob, fingerprint, createdBy, time.Now().UTC())
	if err != nil {
		d.record("update", err)
		return nil, err
	}

	updated, err := d.store.CommitVersion(ctx, expectedVersionID, next)
	if err != nil {
		if errors.Is(err, store.ErrHeadMoved) {
			err = d.explainMiss(ctx, docID, expectedVersionID)
		}
		d.record("update", err)
		return nil, err
	}

	d.versions.Add(next.ID, next.Clone())
	d.refresh(ctx, updated)
	d.publish(ctx, queue.EventVersionCommitted, updated)
	d.record("update", nil)

	logrus.Debugf("document %s advanced to version %s (sequence %d)", docID, next.ID, next.Sequence)
	return next, nil
}

// Transition moves the document along one lifecycle edge. The head must
// still be expectedVersionID.
func (d *DocumentService) Transition(ctx context.Context, docID, expectedVersionID uuid.UUID, to model.LifecycleState) (*model.Document, error) {
	if !to.Valid() {
		d.record("transition", ErrInvalidArgument)
		return nil, invalidArgument("unknown lifecycle state %q", to)
	}

	var doc *model.Document
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		var err error
		doc, err = d.store.GetDocument(ctx, docID)
		if err != nil {
			d.record("transition", err)
			return nil, err
		}

		if err := checkWritable(doc); err != nil {
			d.record("transition", err)
			return nil, err
		}
		if doc.HeadVersionID != expectedVersionID {
			err := conflict(doc, expectedVersionID)
			d.record("transition", err)
			return nil, err
		}
		if !model.CanTransition(doc.State, to) {
			err := fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.State, to)
			d.record("transition", err)
			return nil, err
		}

		updated, err := d.store.SwapState(ctx, docID, expectedVersionID, doc.State, to, time.Now().UTC())
		if errors.Is(err, store.ErrHeadMoved) {
			// the state moved under us; validate the edge again
			continue
		}
		if err != nil {
			d.record("transition", err)
			return nil, err
		}

		d.refresh(ctx, updated)
		d.publish(ctx, queue.EventStateChanged, updated)
		d.record("transition", nil)

		logrus.Infof("document %s moved %s -> %s", docID, doc.State, to)
		return updated, nil
	}

	err := conflict(doc, expectedVersionID)
	d.record("transition", err)
	return nil, err
}

// SoftDelete moves any non-terminal document to deleted. Deleting a deleted
// document returns it unchanged.
func (d *DocumentService) SoftDelete(ctx context.Context, docID uuid.UUID) (*model.Document, error) {
	for {
		doc, err := d.store.GetDocument(ctx, docID)
		if err != nil {
			d.record("soft_delete", err)
			return nil, err
		}

		switch doc.State {
		case model.StateSubmitted:
			d.record("soft_delete", ErrDocumentSealed)
			return nil, fmt.Errorf("%w: document %s", ErrDocumentSealed, docID)
		case model.StateDeleted:
			metrics.DocumentWrites.WithLabelValues("soft_delete", "noop").Inc()
			return doc, nil
		}

		updated, err := d.store.SwapState(ctx, docID, doc.HeadVersionID, doc.State, model.StateDeleted, time.Now().UTC())
		if errors.Is(err, store.ErrHeadMoved) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			d.record("soft_delete", err)
			return nil, err
		}

		d.refresh(ctx, updated)
		d.publish(ctx, queue.EventStateChanged, updated)
		d.record("soft_delete", nil)
		return updated, nil
	}
}

// Get returns the current document, served from the cache when possible.
func (d *DocumentService) Get(ctx context.Context, docID uuid.UUID) (*model.Document, error) {
	cached, err := d.cache.GetDocument(ctx, docID)
	if err != nil {
		logrus.Warnf("document cache read failed for %s: %v", docID, err)
	}
	if cached != nil {
		return cached, nil
	}

	doc, err := d.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	d.refresh(ctx, doc)
	return doc, nil
}

// GetVersion returns an immutable version.
func (d *DocumentService) GetVersion(ctx context.Context, versionID uuid.UUID) (*model.Version, error) {
	if version, ok := d.versions.Get(versionID); ok {
		metrics.VersionCacheLookups.WithLabelValues("hit").Inc()
		return version.Clone(), nil
	}
	metrics.VersionCacheLookups.WithLabelValues("miss").Inc()

	version, err := d.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	d.versions.Add(version.ID, version.Clone())
	return version, nil
}

// Sections decodes the content of a version.
func (d *DocumentService) Sections(ctx context.Context, versionID uuid.UUID) (map[string]string, error) {
	version, err := d.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	decoder, err := compress.FromName(version.Compression)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", versionID, err)
	}
	raw, err := decoder.Decode(version.Content)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w: %v", versionID, codec.ErrCorruptBlob, err)
	}
	return codec.Decode(raw)
}

// Duplicate creates a draft owned by the same owner whose first version
// holds the head sections of docID. The metadata is copied; an empty title
// becomes the source title with a " (copy)" suffix. Submitted documents can
// be duplicated, soft deleted ones can not.
func (d *DocumentService) Duplicate(ctx context.Context, docID uuid.UUID, title, createdBy string) (*model.Document, error) {
	source, err := d.store.GetDocument(ctx, docID)
	if err != nil {
		d.record("duplicate", err)
		return nil, err
	}
	if source.State == model.StateDeleted {
		err := fmt.Errorf("%w: document %s", ErrDocumentDeleted, docID)
		d.record("duplicate", err)
		return nil, err
	}

	sections, err := d.Sections(ctx, source.HeadVersionID)
	if err != nil {
		d.record("duplicate", err)
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		title = source.Title + " (copy)"
	}
	doc, err := d.Create(ctx, CreateParams{
		OwnerID:       source.OwnerID,
		Title:         title,
		ResearchField: source.ResearchField,
		FundingAgency: source.FundingAgency,
		Keywords:      source.KeywordList(),
		Sections:      sections,
		CreatedBy:     createdBy,
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("duplicated document %s as %s", docID, doc.ID)
	return doc, nil
}

// Erase hard deletes a document with its versions and references.
func (d *DocumentService) Erase(ctx context.Context, docID uuid.UUID) error {
	if err := d.store.EraseDocument(ctx, docID); err != nil {
		d.record("erase", err)
		return err
	}

	for _, id := range d.versions.Keys() {
		if version, ok := d.versions.Peek(id); ok && version.DocumentID == docID {
			d.versions.Remove(id)
		}
	}
	if err := d.cache.DeleteDocument(ctx, docID); err != nil {
		logrus.Warnf("document cache delete failed for %s: %v", docID, err)
	}
	d.publish(ctx, queue.EventDocumentErased, &model.Document{ID: docID, UpdatedAt: time.Now().UTC()})
	d.record("erase", nil)

	logrus.Infof("erased document %s", docID)
	return nil
}

// GetVersionChain walks the versions of a document from the head back to
// the first one.
func (d *DocumentService) GetVersionChain(docID uuid.UUID) *VersionIterator {
	return &VersionIterator{docs: d, docID: docID}
}

// Chain drains GetVersionChain.
func (d *DocumentService) Chain(ctx context.Context, docID uuid.UUID) ([]*model.Version, error) {
	it := d.GetVersionChain(docID)
	versions := make([]*model.Version, 0)
	for it.Next(ctx) {
		versions = append(versions, it.Version())
	}
	return versions, it.Err()
}

func (d *DocumentService) newVersion(docID uuid.UUID, sequence int64, parent *uuid.UUID, sections map[string]string, createdBy string, at time.Time) (*model.Version, error) {
	blob, fingerprint, err := codec.Encode(sections)
	if err != nil {
		return nil, err
	}
	return d.versionFromBlob(docID, sequence, parent, blob, fingerprint, createdBy, at)
}

func (d *DocumentService) versionFromBlob(docID uuid.UUID, sequence int64, parent *uuid.UUID, blob codec.Blob, fingerprint codec.Fingerprint, createdBy string, at time.Time) (*model.Version, error) {
	content, err := d.compress.Encode(blob)
	if err != nil {
		return nil, fmt.Errorf("compress content: %w", err)
	}

	return &model.Version{
		ID:              uuid.New(),
		DocumentID:      docID,
		Sequence:        sequence,
		ParentVersionID: parent,
		Content:         content,
		Compression:     d.compress.Name(),
		Fingerprint:     fingerprint.String(),
		CreatedBy:       createdBy,
		CreatedAt:       at,
	}, nil
}

// explainMiss turns a failed head swap into the error the caller should
// see, based on the head as it is now.
func (d *DocumentService) explainMiss(ctx context.Context, docID, expected uuid.UUID) error {
	doc, err := d.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if err := checkWritable(doc); err != nil {
		return err
	}
	return conflict(doc, expected)
}

func (d *DocumentService) refresh(ctx context.Context, doc *model.Document) {
	if err := d.cache.SetDocument(ctx, doc); err != nil {
		logrus.Warnf("document cache write failed for %s: %v", doc.ID, err)
	}
}

func (d *DocumentService) publish(ctx context.Context, kind queue.EventKind, doc *model.Document) {
	if err := d.publisher.Publish(ctx, queue.NewDocumentEvent(kind, doc)); err != nil {
		metrics.EventPublishFailures.Inc()
		logrus.Errorf("failed to publish %s for document %s: %v", kind, doc.ID, err)
	}
}

func (d *DocumentService) record(op string, err error) {
	metrics.DocumentWrites.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVersionConflict):
		return "conflict"
	case errors.Is(err, ErrDocumentSealed), errors.Is(err, ErrDocumentDeleted):
		return "sealed"
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrEncoding):
		return "invalid"
	default:
		return "error"
	}
}

func checkWritable(doc *model.Document) error {
	switch doc.State {
	case model.StateSubmitted:
		return fmt.Errorf("%w: document %s", ErrDocumentSealed, doc.ID)
	case model.StateDeleted:
		return fmt.Errorf("%w: document %s", ErrDocumentDeleted, doc.ID)
	}
	return nil
}

func conflict(doc *model.Document, expected uuid.UUID) error {
	return &VersionConflictError{
		DocumentID: doc.ID,
		Expected:   expected,
		Current:    doc.HeadVersionID,
	}
}

// VersionIterator is a lazy walk down a version chain. Each call to Next
// loads one version. Reset starts over from the head as it is then.
type VersionIterator struct {
	docs    *DocumentService
	docID   uuid.UUID
	started bool
	next    *uuid.UUID
	current *model.Version
	err     error
}

// Next advances to the next older version and reports whether there is one.
func (it *VersionIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}

	if !it.started {
		it.started = true
		doc, err := it.docs.store.GetDocument(ctx, it.docID)
		if err != nil {
			it.err = err
			return false
		}
		head := doc.HeadVersionID
		it.next = &head
	}

	if it.next == nil {
		it.current = nil
		return false
	}

	version, err := it.docs.GetVersion(ctx, *it.next)
	if err != nil {
		it.err = err
		return false
	}

	if it.current != nil && version.Sequence != it.current.Sequence-1 {
		it.err = fmt.Errorf("%w: version %s has sequence %d after %d", ErrCorruptChain, version.ID, version.Sequence, it.current.Sequence)
		return false
	}
	if (version.ParentVersionID == nil) != (version.Sequence == 1) {
		it.err = fmt.Errorf("%w: version %s has sequence %d", ErrCorruptChain, version.ID, version.Sequence)
		return false
	}

	it.current = version
	it.next = version.ParentVersionID
	return true
}

// Version returns the version Next moved to.
func (it *VersionIterator) Version() *model.Version {
	return it.current
}

func (it *VersionIterator) Err() error {
	return it.err
}

func (it *VersionIterator) Reset() {
	it.started = false
	it.next = nil
	it.current = nil
	it.err = nil
}
