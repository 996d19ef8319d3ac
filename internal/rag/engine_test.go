package rag

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

func result(file string, index int, sim float64) domain.SearchResult {
	return domain.SearchResult{
		Content:    "chunk " + file,
		Metadata:   domain.Metadata{FilePath: "/docs/" + file, FileName: file, ChunkIndex: index},
		Similarity: sim,
	}
}

func TestFuseRanksSharedChunkFirst(t *testing.T) {
	a := result("a.txt", 0, 1.0)
	b := result("b.txt", 0, 1.0)
	c := result("c.txt", 0, 0.9)

	fusedResults := fuse(
		[]domain.SearchResult{a, b}, // keyword ranks 0, 1
		[]domain.SearchResult{b, c}, // vector ranks 0, 1
	)

	if len(fusedResults) != 3 {
		t.Fatalf("fused %d results, want 3", len(fusedResults))
	}
	wantOrder := []string{"b.txt", "a.txt", "c.txt"}
	for i, want := range wantOrder {
		if fusedResults[i].Metadata.FileName != want {
			t.Fatalf("rank %d = %s, want %s", i, fusedResults[i].Metadata.FileName, want)
		}
	}
	wantScores := []float64{1.2/62 + 1.0/61, 1.2 / 61, 1.0 / 62}
	for i, want := range wantScores {
		if math.Abs(fusedResults[i].Similarity-want) > 1e-12 {
			t.Fatalf("rank %d score = %v, want %v", i, fusedResults[i].Similarity, want)
		}
	}
}

func TestFuseExcludesVectorHitsBelowFloor(t *testing.T) {
	weak := result("weak.txt", 0, 0.3)
	strong := result("strong.txt", 0, 0.8)

	fusedResults := fuse(nil, []domain.SearchResult{strong, weak})
	if len(fusedResults) != 1 || fusedResults[0].Metadata.FileName != "strong.txt" {
		t.Fatalf("low-similarity hit must be excluded, got %+v", fusedResults)
	}
}

func TestFuseCapsChunksPerFile(t *testing.T) {
	var keyword []domain.SearchResult
	for i := 0; i < 5; i++ {
		keyword = append(keyword, result("big.txt", i, 1.0))
	}
	keyword = append(keyword, result("other.txt", 0, 1.0))

	fusedResults := fuse(keyword, nil)
	perFile := map[string]int{}
	for _, r := range fusedResults {
		perFile[r.Metadata.FileName]++
	}
	if perFile["big.txt"] != 3 {
		t.Fatalf("big.txt contributed %d chunks, want 3", perFile["big.txt"])
	}
	if perFile["other.txt"] != 1 {
		t.Fatalf("other.txt missing from fused results: %+v", perFile)
	}
}

func TestExtractKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"what is the vacation policy?", []string{"vacation", "policy"}},
		{"2025년 3월 report!", []string{"2025.03", "report"}},
		{"3월 스케줄", []string{"03", "스케줄"}},
		{"a b c", nil},
	}
	for _, tc := range cases {
		got := extractKeywords(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("extractKeywords(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("extractKeywords(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want questionKind
	}{
		{"hello there", kindGreeting},
		{"thanks!", kindGreeting},
		{"ok cool", kindSmallTalk},
		{"files?", kindRetrieval}, // short, but document-seeking
		{"what does the onboarding document say about laptops?", kindRetrieval},
	}
	for _, tc := range cases {
		if got := classify(tc.in); got != tc.want {
			t.Fatalf("classify(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestExtractSources_OnePerFile(t *testing.T) {
	results := []domain.SearchResult{
		result("a.txt", 2, 0.9),
		result("a.txt", 0, 0.8),
		result("b.txt", 1, 0.7),
	}
	sources := extractSources(results)
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if sources[0].FileName != "a.txt" || sources[0].ChunkIndex != 2 {
		t.Fatalf("first source must be the first-seen chunk: %+v", sources[0])
	}
	if sources[1].FileName != "b.txt" {
		t.Fatalf("unexpected second source: %+v", sources[1])
	}
}

func TestBuildPrompt_ThreeWayBranch(t *testing.T) {
	greeting := buildPrompt(kindGreeting, nil, "hello")
	if !strings.Contains(greeting, "Greet") {
		t.Fatalf("greeting prompt missing greeting instruction: %q", greeting)
	}

	noContext := buildPrompt(kindRetrieval, nil, "what about tax rules?")
	if strings.Contains(noContext, "reference documents") {
		t.Fatalf("no-context prompt must not mention documents: %q", noContext)
	}
	if !strings.Contains(noContext, "honestly") {
		t.Fatalf("no-context prompt missing conservative instruction: %q", noContext)
	}

	grounded := buildPrompt(kindRetrieval, []domain.SearchResult{result("notes.txt", 0, 0.9)}, "what about tax rules?")
	for _, want := range []string{"=== reference documents start ===", "[source: notes.txt]", "do not contain"} {
		if !strings.Contains(grounded, want) {
			t.Fatalf("grounded prompt missing %q:\n%s", want, grounded)
		}
	}
}

// --- end-to-end stream tests against a real store ---

type fakeEmbedder struct {
	calls int32
}

// axis-aligned vectors: text mentioning "budget" embeds near budget
// chunks, everything else lands on a distinct axis.
func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	if strings.Contains(strings.ToLower(text), "budget") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, onProgress func(done, total int)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
		if onProgress != nil {
			onProgress(i+1, len(texts))
		}
	}
	return out, nil
}

type fakeCompleter struct {
	fragments []string
	err       error
	prompts   []string
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string, _ domain.CompletionOptions) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	return strings.Join(c.fragments, ""), nil
}

func (c *fakeCompleter) StreamComplete(_ context.Context, prompt string, _ domain.CompletionOptions, onChunk func(string) error) error {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return c.err
	}
	for _, f := range c.fragments {
		if err := onChunk(f); err != nil {
			return err
		}
	}
	return nil
}

type fakeIndexer struct {
	pauses, resumes int32
}

func (f *fakeIndexer) Pause()  { atomic.AddInt32(&f.pauses, 1) }
func (f *fakeIndexer) Resume() { atomic.AddInt32(&f.resumes, 1) }
func (f *fakeIndexer) Stop()   {}
func (f *fakeIndexer) Status() domain.IndexingStatus {
	return domain.IndexingStatus{State: domain.StateIdle}
}
func (f *fakeIndexer) IndexFolders(context.Context, []string) error { return nil }

func seededStore(t *testing.T, embedder domain.Embedder) *vectorstore.Store {
	t.Helper()
	store := vectorstore.New(filepath.Join(t.TempDir(), "snapshot.json"))
	chunks := []domain.Chunk{
		{Content: "The travel budget for Q3 is 12000 euros.", Metadata: domain.Metadata{FilePath: "/docs/budget.txt", FileName: "budget.txt", ChunkIndex: 0}},
		{Content: "Team offsite happens in October.", Metadata: domain.Metadata{FilePath: "/docs/offsite.txt", FileName: "offsite.txt", ChunkIndex: 0}},
	}
	if err := store.AddDocuments(context.Background(), chunks, embedder, false, nil); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return store
}

func collect(t *testing.T, events <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	for e := range events {
		out = append(out, e)
	}
	if len(out) == 0 {
		t.Fatal("stream produced no events")
	}
	return out
}

func TestQueryStream_SourcesThenChunksThenDone(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := seededStore(t, embedder)
	llm := &fakeCompleter{fragments: []string{"The travel budget ", "is 12000 euros."}}
	indexer := &fakeIndexer{}
	engine := NewEngine(store, embedder, llm, Options{Indexer: indexer})

	events := collect(t, engine.QueryStream(context.Background(), "what is the travel budget?"))

	if events[0].Type != EventSources {
		t.Fatalf("first event = %v, want sources", events[0].Type)
	}
	if events[0].Sources[0].FileName != "budget.txt" {
		t.Fatalf("top source = %s, want budget.txt", events[0].Sources[0].FileName)
	}
	var answer strings.Builder
	for _, e := range events[1 : len(events)-1] {
		if e.Type != EventChunk {
			t.Fatalf("mid-stream event = %v, want chunk", e.Type)
		}
		answer.WriteString(e.Text)
	}
	if answer.String() != "The travel budget is 12000 euros." {
		t.Fatalf("reassembled answer = %q", answer.String())
	}
	if last := events[len(events)-1]; last.Type != EventDone {
		t.Fatalf("terminal event = %v, want done", last.Type)
	}
	if !strings.Contains(llm.prompts[0], "budget.txt") {
		t.Fatal("grounded prompt must cite the source file")
	}
	if atomic.LoadInt32(&indexer.pauses) != 1 || atomic.LoadInt32(&indexer.resumes) != 1 {
		t.Fatalf("indexer pause/resume = %d/%d, want 1/1", indexer.pauses, indexer.resumes)
	}
}

func TestQueryStream_GreetingSkipsRetrieval(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := seededStore(t, embedder)
	embedderCallsAfterSeed := atomic.LoadInt32(&embedder.calls)
	llm := &fakeCompleter{fragments: []string{"Hello!"}}
	engine := NewEngine(store, embedder, llm, Options{})

	events := collect(t, engine.QueryStream(context.Background(), "hello"))

	for _, e := range events {
		if e.Type == EventSources {
			t.Fatal("greeting must not emit sources")
		}
	}
	if atomic.LoadInt32(&embedder.calls) != embedderCallsAfterSeed {
		t.Fatal("greeting must not call the embedder")
	}
}

func TestQueryStream_TerminalErrorEvent(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := seededStore(t, embedder)
	llm := &fakeCompleter{err: errors.New("model exploded")}
	engine := NewEngine(store, embedder, llm, Options{})

	events := collect(t, engine.QueryStream(context.Background(), "what is the travel budget?"))
	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("terminal event = %v, want error", last.Type)
	}
	if last.Err == nil || !strings.Contains(last.Err.Error(), "model exploded") {
		t.Fatalf("error event must carry the failure: %v", last.Err)
	}
}

func TestQueryStream_CommandsShortCircuit(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := seededStore(t, embedder)
	llm := &fakeCompleter{fragments: []string{"must not run"}}
	engine := NewEngine(store, embedder, llm, Options{Indexer: &fakeIndexer{}})

	events := collect(t, engine.QueryStream(context.Background(), "/status"))
	var text strings.Builder
	for _, e := range events {
		if e.Type == EventChunk {
			text.WriteString(e.Text)
		}
	}
	if !strings.Contains(text.String(), "indexed chunks: 2") {
		t.Fatalf("status output missing chunk count: %q", text.String())
	}
	if last := events[len(events)-1]; last.Type != EventDone {
		t.Fatalf("terminal event = %v, want done", last.Type)
	}
	if len(llm.prompts) != 0 {
		t.Fatal("command input must not reach the model")
	}

	events = collect(t, engine.QueryStream(context.Background(), "/frobnicate"))
	if !strings.Contains(events[0].Text, "unknown command") {
		t.Fatalf("unknown command fallback missing: %+v", events[0])
	}
}

func TestQuery_NonStreaming(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := seededStore(t, embedder)
	llm := &fakeCompleter{fragments: []string{"12000 euros."}}
	engine := NewEngine(store, embedder, llm, Options{})

	answer, sources, err := engine.Query(context.Background(), "what is the travel budget?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "12000 euros." {
		t.Fatalf("answer = %q", answer)
	}
	if len(sources) == 0 || sources[0].FileName != "budget.txt" {
		t.Fatalf("sources = %+v", sources)
	}
}
