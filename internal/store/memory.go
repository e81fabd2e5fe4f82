package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/emrgen/grantcore/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// headCell holds the current snapshot of one document. Writers build a new
// snapshot and swap it in with a compare-and-swap; snapshots are never
// mutated after publication.
type headCell struct {
	head atomic.Pointer[model.Document]
}

// MemoryStore keeps everything in process. Documents live in an arena of
// head cells addressed through a slot index, so writers of different
// documents never share a lock. The slot lock is only taken to create,
// find or erase a slot.
type MemoryStore struct {
	slotMu sync.RWMutex
	slots  map[uuid.UUID]int
	cells  []*headCell

	versions sync.Map // uuid.UUID -> *model.Version

	corpusMu sync.RWMutex
	corpus   map[string]*model.CorpusEntry

	refMu sync.RWMutex
	refs  map[uuid.UUID]map[string]*model.Reference
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:  make(map[uuid.UUID]int),
		corpus: make(map[string]*model.CorpusEntry),
		refs:   make(map[uuid.UUID]map[string]*model.Reference),
	}
}

func (m *MemoryStore) cell(id uuid.UUID) (*headCell, bool) {
	m.slotMu.RLock()
	defer m.slotMu.RUnlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, false
	}
	return m.cells[slot], true
}

func (m *MemoryStore) CreateDocument(_ context.Context, doc *model.Document, first *model.Version) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if first.CreatedAt.IsZero() {
		first.CreatedAt = doc.CreatedAt
	}

	m.slotMu.Lock()
	defer m.slotMu.Unlock()
	if _, ok := m.slots[doc.ID]; ok {
		return ErrHeadMoved
	}

	m.versions.Store(first.ID, first.Clone())

	cell := &headCell{}
	cell.head.Store(doc.Clone())
	m.slots[doc.ID] = len(m.cells)
	m.cells = append(m.cells, cell)

	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id uuid.UUID) (*model.Document, error) {
	cell, ok := m.cell(id)
	if !ok {
		return nil, ErrNotFound
	}
	head := cell.head.Load()
	if head == nil {
		return nil, ErrNotFound
	}
	return head.Clone(), nil
}

func (m *MemoryStore) heads() []*model.Document {
	m.slotMu.RLock()
	cells := make([]*headCell, len(m.cells))
	copy(cells, m.cells)
	m.slotMu.RUnlock()

	docs := make([]*model.Document, 0, len(cells))
	for _, cell := range cells {
		if head := cell.head.Load(); head != nil {
			docs = append(docs, head)
		}
	}
	return docs
}

func (m *MemoryStore) ListDocuments(_ context.Context, query DocumentQuery) ([]*model.Document, int64, error) {
	search := strings.ToLower(query.Search)
	docs := make([]*model.Document, 0)
	for _, head := range m.heads() {
		if head.OwnerID != query.OwnerID {
			continue
		}
		if query.State != "" && head.State != query.State {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(head.Title), search) &&
			!strings.Contains(strings.ToLower(head.ResearchField), search) {
			continue
		}
		docs = append(docs, head.Clone())
	}

	less := documentOrder(query.OrderBy)
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if query.Desc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return docs[i].ID.String() < docs[j].ID.String()
	})

	total := int64(len(docs))
	offset := max(query.Offset, 0)
	if offset >= len(docs) {
		return []*model.Document{}, total, nil
	}
	docs = docs[offset:]
	if query.Limit > 0 && query.Limit < len(docs) {
		docs = docs[:query.Limit]
	}
	return docs, total, nil
}

func documentOrder(column string) func(a, b *model.Document) bool {
	switch column {
	case OrderByUpdatedAt:
		return func(a, b *model.Document) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case OrderByTitle:
		return func(a, b *model.Document) bool { return a.Title < b.Title }
	default:
		return func(a, b *model.Document) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func (m *MemoryStore) CountDocumentsByState(_ context.Context, ownerID string) (map[model.LifecycleState]int64, error) {
	counts := make(map[model.LifecycleState]int64)
	for _, head := range m.heads() {
		if head.OwnerID == ownerID {
			counts[head.State]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) CommitVersion(_ context.Context, expected uuid.UUID, next *model.Version) (*model.Document, error) {
	cell, ok := m.cell(next.DocumentID)
	if !ok {
		return nil, ErrNotFound
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now()
	}

	// the version is reachable only by its fresh id until the swap succeeds
	stored := next.Clone()
	m.versions.Store(stored.ID, stored)

	for {
		cur := cell.head.Load()
		if cur == nil {
			m.versions.Delete(stored.ID)
			return nil, ErrNotFound
		}
		if cur.HeadVersionID != expected || cur.State.Terminal() || cur.HeadSequence+1 != next.Sequence {
			m.versions.Delete(stored.ID)
			return nil, ErrHeadMoved
		}

		updated := cur.Clone()
		updated.HeadVersionID = next.ID
		updated.HeadSequence = next.Sequence
		updated.UpdatedAt = next.CreatedAt

		if cell.head.CompareAndSwap(cur, updated) {
			return updated.Clone(), nil
		}
		// a concurrent state change landed; re-check against the new snapshot
	}
}

func (m *MemoryStore) SwapState(_ context.Context, id, expectedHead uuid.UUID, from, to model.LifecycleState, at time.Time) (*model.Document, error) {
	cell, ok := m.cell(id)
	if !ok {
		return nil, ErrNotFound
	}

	cur := cell.head.Load()
	if cur == nil {
		return nil, ErrNotFound
	}
	if cur.HeadVersionID != expectedHead || cur.State != from {
		return nil, ErrHeadMoved
	}

	updated := cur.Clone()
	updated.State = to
	updated.UpdatedAt = at
	switch to {
	case model.StateSubmitted:
		updated.SubmittedAt = &at
	case model.StateDeleted:
		updated.SoftDeletedAt = &at
	}

	if !cell.head.CompareAndSwap(cur, updated) {
		return nil, ErrHeadMoved
	}
	return updated.Clone(), nil
}

func (m *MemoryStore) EraseDocument(_ context.Context, id uuid.UUID) error {
	m.slotMu.Lock()
	slot, ok := m.slots[id]
	if !ok {
		m.slotMu.Unlock()
		return ErrNotFound
	}
	cell := m.cells[slot]
	delete(m.slots, id)
	m.slotMu.Unlock()

	// the arena slot stays allocated; a nil head marks it dead
	cell.head.Store(nil)

	m.versions.Range(func(key, value any) bool {
		if value.(*model.Version).DocumentID == id {
			m.versions.Delete(key)
		}
		return true
	})

	m.refMu.Lock()
	delete(m.refs, id)
	m.refMu.Unlock()

	return nil
}

func (m *MemoryStore) GetVersion(_ context.Context, id uuid.UUID) (*model.Version, error) {
	value, ok := m.versions.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return value.(*model.Version).Clone(), nil
}

func (m *MemoryStore) ListVersions(ctx context.Context, docID uuid.UUID) ([]*model.Version, error) {
	doc, err := m.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	versions := make([]*model.Version, 0, doc.HeadSequence)
	next := &doc.HeadVersionID
	for next != nil {
		version, err := m.GetVersion(ctx, *next)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
		next = version.ParentVersionID
	}
	return versions, nil
}

func (m *MemoryStore) SaveCorpusEntry(_ context.Context, entry *model.CorpusEntry) error {
	m.corpusMu.Lock()
	defer m.corpusMu.Unlock()

	now := time.Now()
	saved := cloneEntry(entry)
	if prev, ok := m.corpus[entry.ID]; ok {
		saved.CreatedAt = prev.CreatedAt
		saved.CitationCount = prev.CitationCount
	} else if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	m.corpus[entry.ID] = saved
	return nil
}

func (m *MemoryStore) GetCorpusEntry(_ context.Context, id string) (*model.CorpusEntry, error) {
	m.corpusMu.RLock()
	defer m.corpusMu.RUnlock()
	entry, ok := m.corpus[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (m *MemoryStore) ListCorpusEntries(_ context.Context, ids []string) ([]*model.CorpusEntry, error) {
	m.corpusMu.RLock()
	defer m.corpusMu.RUnlock()
	entries := make([]*model.CorpusEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := m.corpus[id]; ok {
			entries = append(entries, cloneEntry(entry))
		}
	}
	return entries, nil
}

func (m *MemoryStore) ScanCorpusEntries(ctx context.Context, batch int, fn func([]*model.CorpusEntry) error) error {
	m.corpusMu.RLock()
	ids := make([]string, 0, len(m.corpus))
	for id := range m.corpus {
		ids = append(ids, id)
	}
	m.corpusMu.RUnlock()
	sort.Strings(ids)

	if batch <= 0 {
		batch = len(ids)
	}
	for start := 0; start < len(ids); start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		entries, _ := m.ListCorpusEntries(ctx, ids[start:end])
		if err := fn(entries); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) UpdateCitationCount(_ context.Context, id string, count int64) error {
	m.corpusMu.Lock()
	defer m.corpusMu.Unlock()
	entry, ok := m.corpus[id]
	if !ok {
		return ErrNotFound
	}
	updated := cloneEntry(entry)
	updated.CitationCount = count
	updated.UpdatedAt = time.Now()
	m.corpus[id] = updated
	return nil
}

func (m *MemoryStore) EraseCorpusEntry(_ context.Context, id string) error {
	m.corpusMu.Lock()
	delete(m.corpus, id)
	m.corpusMu.Unlock()

	m.refMu.Lock()
	defer m.refMu.Unlock()
	for _, refs := range m.refs {
		delete(refs, id)
	}
	return nil
}

func (m *MemoryStore) UpsertReference(_ context.Context, ref *model.Reference) (*model.Reference, error) {
	m.refMu.Lock()
	defer m.refMu.Unlock()

	refs, ok := m.refs[ref.DocumentID]
	if !ok {
		refs = make(map[string]*model.Reference)
		m.refs[ref.DocumentID] = refs
	}

	saved := *ref
	if prev, ok := refs[ref.EntryID]; ok {
		saved.CreatedAt = prev.CreatedAt
		saved.CreatedBy = prev.CreatedBy
	}
	refs[ref.EntryID] = &saved

	out := saved
	return &out, nil
}

func (m *MemoryStore) DeleteReference(_ context.Context, docID uuid.UUID, entryID string) error {
	m.refMu.Lock()
	defer m.refMu.Unlock()
	if refs, ok := m.refs[docID]; ok {
		delete(refs, entryID)
	}
	return nil
}

func (m *MemoryStore) ListReferences(_ context.Context, docID uuid.UUID) ([]*model.Reference, error) {
	m.refMu.RLock()
	defer m.refMu.RUnlock()
	out := make([]*model.Reference, 0, len(m.refs[docID]))
	for _, ref := range m.refs[docID] {
		copied := *ref
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MemoryStore) ListReferencesByEntries(_ context.Context, entryIDs []string) ([]*model.Reference, error) {
	wanted := make(map[string]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		wanted[id] = struct{}{}
	}

	m.refMu.RLock()
	defer m.refMu.RUnlock()
	out := make([]*model.Reference, 0)
	for _, refs := range m.refs {
		for entryID, ref := range refs {
			if _, ok := wanted[entryID]; ok {
				copied := *ref
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) ListReferencesByOrigin(_ context.Context, origin model.ReferenceOrigin) ([]*model.Reference, error) {
	m.refMu.RLock()
	defer m.refMu.RUnlock()
	out := make([]*model.Reference, 0)
	for _, refs := range m.refs {
		for _, ref := range refs {
			if ref.CreatedBy == origin {
				copied := *ref
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateReferenceScore(_ context.Context, prev *model.Reference, score float64, decayedAt time.Time) (bool, error) {
	m.refMu.Lock()
	defer m.refMu.Unlock()
	ref, ok := m.refs[prev.DocumentID][prev.EntryID]
	if !ok || ref.RelevanceScore != prev.RelevanceScore || !ref.DecayedAt.Equal(prev.DecayedAt) {
		return false, nil
	}
	updated := *ref
	updated.RelevanceScore = score
	updated.DecayedAt = decayedAt
	m.refs[prev.DocumentID][prev.EntryID] = &updated
	return true, nil
}

func (m *MemoryStore) Migrate() error {
	return nil
}

func cloneEntry(entry *model.CorpusEntry) *model.CorpusEntry {
	clone := *entry
	clone.Embedding = pgvector.NewVector(append([]float32(nil), entry.Embedding.Slice()...))
	return &clone
}
