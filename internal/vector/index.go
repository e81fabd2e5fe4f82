package vector

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLists           = 32
	DefaultSearchLists     = 4
	DefaultFlatThreshold   = 2048
	DefaultFilterExpansion = 4

	stripes = 64
)

// Options configures an Index. Only Dimension is required.
type Options struct {
	// Dimension every embedding must have.
	Dimension int
	// Lists is the number of centroid lists seeded into an empty index.
	Lists int
	// SearchLists is the number of nearest lists a search visits.
	SearchLists int
	// FlatThreshold is the corpus size at or below which a search visits
	// every list.
	FlatThreshold int
	// FilterExpansion bounds filtered searches to SearchLists*FilterExpansion lists.
	FilterExpansion int
	// Seed drives k-means++ seeding on rebuild.
	Seed uint64
}

func (o Options) withDefaults() Options {
	if o.Lists <= 0 {
		o.Lists = DefaultLists
	}
	if o.SearchLists <= 0 {
		o.SearchLists = DefaultSearchLists
	}
	if o.FlatThreshold < 0 {
		o.FlatThreshold = 0
	} else if o.FlatThreshold == 0 {
		o.FlatThreshold = DefaultFlatThreshold
	}
	if o.FilterExpansion <= 0 {
		o.FilterExpansion = DefaultFilterExpansion
	}
	return o
}

// Entry is an indexed embedding with its metadata.
type Entry struct {
	ID        string
	Embedding []float32
	Meta
}

// Hit is one search result.
type Hit struct {
	ID         string
	Similarity float64
	Meta       Meta
}

// Stats describes the current generation of an index.
type Stats struct {
	Generation  uint64
	Lists       int
	Entries     int
	MinListSize int
	MaxListSize int
	Rebuilding  bool
}

type item struct {
	id   string
	vec  []float32
	norm float64
	meta Meta
}

// list is one centroid and the entries assigned to it. The centroid never
// changes after the list is created.
type list struct {
	centroid []float32
	norm     float64

	mu    sync.RWMutex
	items map[string]*item
}

func newList(centroid []float32, n float64) *list {
	return &list{
		centroid: centroid,
		norm:     n,
		items:    make(map[string]*item),
	}
}

// generation is one complete coarse quantizer. Rebuild builds a fresh
// generation and swaps it in.
type generation struct {
	id     uint64
	target int

	seedMu sync.Mutex
	lists  atomic.Pointer[[]*list]

	where sync.Map // id -> *list
	count atomic.Int64
}

func newGeneration(id uint64, target int) *generation {
	g := &generation{id: id, target: target}
	lists := make([]*list, 0, target)
	g.lists.Store(&lists)
	return g
}

func (g *generation) snapshot() []*list {
	return *g.lists.Load()
}

// route returns the list an item belongs to. While the generation has fewer
// centroids than its target the item seeds a new one.
func (g *generation) route(it *item) *list {
	lists := g.snapshot()
	if len(lists) < g.target {
		g.seedMu.Lock()
		lists = g.snapshot()
		if len(lists) < g.target {
			l := newList(clone(it.vec), it.norm)
			next := make([]*list, len(lists), len(lists)+1)
			copy(next, lists)
			next = append(next, l)
			g.lists.Store(&next)
			g.seedMu.Unlock()
			return l
		}
		g.seedMu.Unlock()
	}
	return lists[nearestList(lists, it.vec, it.norm)]
}

// put stores an item. Callers serialise puts and deletes of the same id.
func (g *generation) put(it *item) {
	target := g.route(it)

	prev, existed := g.where.Load(it.id)
	if existed && prev.(*list) != target {
		old := prev.(*list)
		old.mu.Lock()
		delete(old.items, it.id)
		old.mu.Unlock()
	}

	target.mu.Lock()
	target.items[it.id] = it
	target.mu.Unlock()

	g.where.Store(it.id, target)
	if !existed {
		g.count.Add(1)
	}
}

func (g *generation) delete(id string) bool {
	prev, ok := g.where.LoadAndDelete(id)
	if !ok {
		return false
	}
	l := prev.(*list)
	l.mu.Lock()
	delete(l.items, id)
	l.mu.Unlock()
	g.count.Add(-1)
	return true
}

func nearestList(lists []*list, v []float32, vn float64) int {
	best, bestSim := 0, math.Inf(-1)
	for i, l := range lists {
		sim := cosine(v, vn, l.centroid, l.norm)
		if sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best
}

// op is an insert or removal recorded while a rebuild is in flight.
type op struct {
	item   *item
	remove string
}

// Index is an inverted-file index over fixed-dimension embeddings. Vectors
// are partitioned into centroid lists; a search scans only the lists whose
// centroids are closest to the query.
type Index struct {
	opts Options

	gen     atomic.Pointer[generation]
	nextGen atomic.Uint64

	locks [stripes]sync.Mutex

	// inserts hold swapMu shared; the rebuild swap holds it exclusively
	swapMu sync.RWMutex

	rebuildMu  sync.Mutex
	journalMu  sync.Mutex
	journal    []op
	rebuilding bool
}

// New creates an empty index.
func New(opts Options) (*Index, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("vector: dimension must be positive, got %d", opts.Dimension)
	}
	idx := &Index{opts: opts.withDefaults()}
	idx.gen.Store(newGeneration(idx.nextGen.Add(1), idx.opts.Lists))
	return idx, nil
}

func (idx *Index) Dimension() int {
	return idx.opts.Dimension
}

func (idx *Index) stripe(id string) *sync.Mutex {
	return &idx.locks[xxhash.Sum64String(id)%stripes]
}

func (idx *Index) check(v []float32) (float64, error) {
	if len(v) != idx.opts.Dimension {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), idx.opts.Dimension)
	}
	return norm(v)
}

// Validate checks that v could be inserted.
func (idx *Index) Validate(v []float32) error {
	_, err := idx.check(v)
	return err
}

// Insert adds or replaces the embedding of id. Once Insert returns, every
// later search observes the entry.
func (idx *Index) Insert(id string, embedding []float32, meta Meta) error {
	if id == "" {
		return ErrEmptyID
	}
	n, err := idx.check(embedding)
	if err != nil {
		return err
	}
	it := &item{id: id, vec: clone(embedding), norm: n, meta: meta}

	idx.swapMu.RLock()
	defer idx.swapMu.RUnlock()

	lock := idx.stripe(id)
	lock.Lock()
	idx.gen.Load().put(it)
	idx.record(op{item: it})
	lock.Unlock()
	return nil
}

// Remove drops id from the index and reports whether it was present.
func (idx *Index) Remove(id string) bool {
	idx.swapMu.RLock()
	defer idx.swapMu.RUnlock()

	lock := idx.stripe(id)
	lock.Lock()
	removed := idx.gen.Load().delete(id)
	idx.record(op{remove: id})
	lock.Unlock()
	return removed
}

func (idx *Index) record(o op) {
	idx.journalMu.Lock()
	if idx.rebuilding {
		idx.journal = append(idx.journal, o)
	}
	idx.journalMu.Unlock()
}

// Search returns up to k entries most similar to query, by descending
// cosine similarity with ties broken by lower id. The filter is applied
// while scanning lists; a filtered search keeps probing further lists until
// k hits are found or SearchLists*FilterExpansion lists were visited. The context
// is checked between list scans and a cancelled search returns no hits.
func (idx *Index) Search(ctx context.Context, query []float32, k int, filter Filter) ([]Hit, error) {
	qn, err := idx.check(query)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	gen := idx.gen.Load()
	lists := gen.snapshot()
	ranked := rankLists(lists, query, qn)

	nearest, limit := len(ranked), len(ranked)
	if int(gen.count.Load()) > idx.opts.FlatThreshold {
		nearest = min(idx.opts.SearchLists, len(ranked))
		limit = nearest
		if filter != nil {
			limit = min(idx.opts.SearchLists*idx.opts.FilterExpansion, len(ranked))
		}
	}

	top := &hitHeap{}
	for visited, li := range ranked {
		if visited >= nearest && (visited >= limit || top.Len() >= k) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scan(lists[li], query, qn, k, filter, top)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]Hit, top.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(top).(Hit)
	}
	return hits, nil
}

func rankLists(lists []*list, q []float32, qn float64) []int {
	sims := make([]float64, len(lists))
	order := make([]int, len(lists))
	for i, l := range lists {
		sims[i] = cosine(q, qn, l.centroid, l.norm)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})
	return order
}

func scan(l *list, q []float32, qn float64, k int, filter Filter, top *hitHeap) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if filter != nil && !filter(it.id, it.meta) {
			continue
		}
		hit := Hit{ID: it.id, Similarity: cosine(q, qn, it.vec, it.norm), Meta: it.meta}
		if top.Len() < k {
			heap.Push(top, hit)
		} else if better(hit, (*top)[0]) {
			(*top)[0] = hit
			heap.Fix(top, 0)
		}
	}
}

// better orders hits by similarity, then by lower id.
func better(a, b Hit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.ID < b.ID
}

// hitHeap is a min-heap on better, holding the current top-k.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Rebuild reconstructs the index from entries with k-means centroids,
// ceil(sqrt(n)) of them. Searches keep using the current generation while
// the new one is built.
func (idx *Index) Rebuild(entries []Entry) error {
	return idx.RebuildFrom(func() ([]Entry, error) {
		return entries, nil
	})
}

// Reindex rebuilds the index from its own current contents.
func (idx *Index) Reindex() error {
	return idx.RebuildFrom(func() ([]Entry, error) {
		return idx.Snapshot(), nil
	})
}

// RebuildFrom rebuilds the index from the entries load returns. Inserts and
// removals that land once load has been called are replayed onto the new
// generation before it is swapped in.
func (idx *Index) RebuildFrom(load func() ([]Entry, error)) error {
	idx.rebuildMu.Lock()
	defer idx.rebuildMu.Unlock()

	idx.journalMu.Lock()
	idx.rebuilding = true
	idx.journal = nil
	idx.journalMu.Unlock()

	abort := func(err error) error {
		idx.journalMu.Lock()
		idx.rebuilding = false
		idx.journal = nil
		idx.journalMu.Unlock()
		return err
	}

	entries, err := load()
	if err != nil {
		return abort(err)
	}

	items := make([]*item, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return abort(ErrEmptyID)
		}
		n, err := idx.check(e.Embedding)
		if err != nil {
			return abort(fmt.Errorf("entry %s: %w", e.ID, err))
		}
		it := &item{id: e.ID, vec: clone(e.Embedding), norm: n, meta: e.Meta}
		if at, dup := seen[e.ID]; dup {
			items[at] = it
			vectors[at] = it.vec
			continue
		}
		seen[e.ID] = len(items)
		items = append(items, it)
		vectors = append(vectors, it.vec)
	}

	start := time.Now()
	gen := idx.build(items, vectors)

	idx.swapMu.Lock()
	idx.journalMu.Lock()
	replayed := len(idx.journal)
	for _, o := range idx.journal {
		if o.item != nil {
			gen.put(o.item)
		} else {
			gen.delete(o.remove)
		}
	}
	idx.journal = nil
	idx.rebuilding = false
	idx.journalMu.Unlock()
	idx.gen.Store(gen)
	idx.swapMu.Unlock()

	logrus.Infof("vector index generation %d: %d entries in %d lists (%d replayed) in %s",
		gen.id, gen.count.Load(), len(gen.snapshot()), replayed, time.Since(start))
	return nil
}

func (idx *Index) build(items []*item, vectors [][]float32) *generation {
	id := idx.nextGen.Add(1)
	if len(items) == 0 {
		return newGeneration(id, idx.opts.Lists)
	}

	k := int(math.Ceil(math.Sqrt(float64(len(items)))))
	centroids, assign := KMeans(vectors, k, DefaultIterations, idx.opts.Seed)

	gen := newGeneration(id, len(centroids))
	lists := make([]*list, len(centroids))
	for c, centroid := range centroids {
		n, _ := norm(centroid)
		lists[c] = newList(centroid, n)
	}
	for i, it := range items {
		l := lists[assign[i]]
		l.items[it.id] = it
		gen.where.Store(it.id, l)
	}
	gen.count.Store(int64(len(items)))
	gen.lists.Store(&lists)
	return gen
}

// Snapshot copies every entry of the current generation, ordered by id.
func (idx *Index) Snapshot() []Entry {
	lists := idx.gen.Load().snapshot()
	entries := make([]Entry, 0)
	for _, l := range lists {
		l.mu.RLock()
		for _, it := range l.items {
			entries = append(entries, Entry{ID: it.id, Embedding: clone(it.vec), Meta: it.meta})
		}
		l.mu.RUnlock()
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return int(idx.gen.Load().count.Load())
}

// Lists returns the number of centroid lists of the current generation.
func (idx *Index) Lists() int {
	return len(idx.gen.Load().snapshot())
}

func (idx *Index) Stats() Stats {
	gen := idx.gen.Load()
	lists := gen.snapshot()
	stats := Stats{
		Generation: gen.id,
		Lists:      len(lists),
		Entries:    int(gen.count.Load()),
	}
	for i, l := range lists {
		l.mu.RLock()
		size := len(l.items)
		l.mu.RUnlock()
		if i == 0 || size < stats.MinListSize {
			stats.MinListSize = size
		}
		if size > stats.MaxListSize {
			stats.MaxListSize = size
		}
	}

	idx.journalMu.Lock()
	stats.Rebuilding = idx.rebuilding
	idx.journalMu.Unlock()
	return stats
}
