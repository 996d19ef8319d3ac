package rag

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"docqa/internal/domain"
)

const commandSigil = "/"

// command is one named chat operation. run emits its output through the
// same stream shape as a generated answer.
type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string, emit func(string))
}

func (e *Engine) commandRegistry() map[string]command {
	return map[string]command{
		"help": {
			usage: "/help",
			help:  "list available commands",
			run:   e.cmdHelp,
		},
		"status": {
			usage: "/status",
			help:  "show indexing progress and store size",
			run:   e.cmdStatus,
		},
		"reindex": {
			usage: "/reindex",
			help:  "re-scan the configured folders in the background",
			run:   e.cmdReindex,
		},
		"stop": {
			usage: "/stop",
			help:  "stop the active indexing run",
			run:   e.cmdStop,
		},
		"clear": {
			usage: "/clear",
			help:  "remove every chunk from the index",
			run:   e.cmdClear,
		},
		"summary": {
			usage: "/summary <file>",
			help:  "summarize an indexed document by file name",
			run:   e.cmdSummary,
		},
	}
}

// dispatchCommand resolves and runs a sigil-prefixed input, emitting
// chunk events and a terminal done, and records the exchange in history
// like any other answer.
func (e *Engine) dispatchCommand(ctx context.Context, input string, out chan<- StreamEvent) {
	fields := strings.Fields(strings.TrimPrefix(input, commandSigil))
	name := ""
	var args []string
	if len(fields) > 0 {
		name = strings.ToLower(fields[0])
		args = fields[1:]
	}

	var reply strings.Builder
	emit := func(text string) {
		reply.WriteString(text)
		out <- StreamEvent{Type: EventChunk, Text: text}
	}

	cmd, ok := e.commands[name]
	if !ok {
		emit(fmt.Sprintf("unknown command %q; try /help\n", commandSigil+name))
	} else {
		cmd.run(ctx, args, emit)
	}
	e.record("assistant", reply.String(), nil)
	out <- StreamEvent{Type: EventDone}
}

func (e *Engine) cmdHelp(_ context.Context, _ []string, emit func(string)) {
	names := make([]string, 0, len(e.commands))
	for name := range e.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	emit("available commands:\n")
	for _, name := range names {
		c := e.commands[name]
		emit(fmt.Sprintf("  %-18s %s\n", c.usage, c.help))
	}
}

func (e *Engine) cmdStatus(_ context.Context, _ []string, emit func(string)) {
	emit(fmt.Sprintf("indexed chunks: %d\n", e.store.Count()))
	if e.indexer == nil {
		return
	}
	st := e.indexer.Status()
	emit(fmt.Sprintf("indexing: %s (%d/%d files)\n", st.State, st.Current, st.Total))
	for _, ie := range st.Errors {
		emit(fmt.Sprintf("  failed: %s: %s\n", ie.FilePath, ie.Message))
	}
}

func (e *Engine) cmdReindex(_ context.Context, _ []string, emit func(string)) {
	if e.indexer == nil {
		emit("indexing is not available in this session\n")
		return
	}
	if len(e.folders) == 0 {
		emit("no folders configured\n")
		return
	}
	// fire-and-forget; failures are logged, progress is visible via /status.
	// detached from the query context so the run outlives this stream.
	go func() {
		if err := e.indexer.IndexFolders(context.Background(), e.folders); err != nil {
			log.Printf("[rag] background reindex failed: %v", err)
		}
	}()
	emit(fmt.Sprintf("reindex started over %d folders; check /status for progress\n", len(e.folders)))
}

func (e *Engine) cmdStop(_ context.Context, _ []string, emit func(string)) {
	if e.indexer == nil {
		emit("indexing is not available in this session\n")
		return
	}
	e.indexer.Stop()
	emit("stop requested; the run will halt after its current file\n")
}

func (e *Engine) cmdClear(_ context.Context, _ []string, emit func(string)) {
	n := e.store.Count()
	e.store.Clear()
	emit(fmt.Sprintf("cleared %d chunks from the index\n", n))
}

func (e *Engine) cmdSummary(_ context.Context, args []string, emit func(string)) {
	if e.summarizer == nil {
		emit("summaries are not available in this session\n")
		return
	}
	if len(args) == 0 {
		emit("usage: /summary <file>\n")
		return
	}
	name := strings.ToLower(strings.Join(args, " "))

	// the file-name weighting in keyword search surfaces the document's
	// own chunks first; filter to exact file-name matches
	hits := e.store.SearchByKeyword([]string{name}, 50)
	byFile := make(map[string][]domain.SearchResult)
	for _, h := range hits {
		if strings.Contains(strings.ToLower(h.Metadata.FileName), name) {
			byFile[h.Metadata.FilePath] = append(byFile[h.Metadata.FilePath], h)
		}
	}
	if len(byFile) == 0 {
		emit(fmt.Sprintf("no indexed document matches %q\n", name))
		return
	}

	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		chunks := byFile[path]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].Metadata.ChunkIndex < chunks[j].Metadata.ChunkIndex })
		contents := make([]string, len(chunks))
		for i, c := range chunks {
			contents[i] = c.Content
		}
		emit(fmt.Sprintf("%s:\n%s\n", chunks[0].Metadata.FileName, e.summarizer.SummarizeChunks(contents, 3)))
	}
}
