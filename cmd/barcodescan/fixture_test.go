package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kmerbase/barcodescan/kbit"
)

// buildShardDir writes a one-shard index.json plus one KBITv1 shard file
// covering a small universe, small enough to build and scan in a test.
// k is the shard's declared k-mer length; totalBits is the shard's key
// universe size (independent of k, exactly as kbit.WriteDense allows).
func buildShardDir(t *testing.T, k int, totalBits uint64, present []uint64) string {
	t.Helper()
	dir := t.TempDir()

	shardPath := filepath.Join(dir, "shard_0000.kbit")
	f, err := os.Create(shardPath)
	if err != nil {
		t.Fatalf("creating shard file: %v", err)
	}
	if err := kbit.WriteDense(f, k, 0, totalBits, present); err != nil {
		t.Fatalf("writing shard: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing shard file: %v", err)
	}

	index := map[string]interface{}{
		"num_shards": 1,
		"k":          k,
		"total_bits": totalBits,
		"shards": []map[string]interface{}{
			{"file": "shard_0000.kbit", "start": 0, "end": totalBits},
		},
	}
	data, err := json.Marshal(index)
	if err != nil {
		t.Fatalf("marshalling index.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0o644); err != nil {
		t.Fatalf("writing index.json: %v", err)
	}
	return dir
}

// writeGCHist writes a GC histogram JSON file for one shard, putting the
// full weight of every bucket in range so SkipShard never triggers.
func writeGCHist(t *testing.T, dir string, k int) string {
	t.Helper()
	buckets := make([]uint64, k+1)
	for i := range buckets {
		buckets[i] = 1
	}
	hist := map[string]interface{}{
		"k":          k,
		"num_shards": 1,
		"shards": []map[string]interface{}{
			{"shard": 0, "gc_hist": buckets},
		},
	}
	data, err := json.Marshal(hist)
	if err != nil {
		t.Fatalf("marshalling gc histogram: %v", err)
	}
	path := filepath.Join(dir, "gc_hist.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing gc histogram: %v", err)
	}
	return path
}

func writeLines(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var contents string
	for _, l := range lines {
		contents += l + "\n"
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func readFileString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it. Used for subcommands (stream) that always
// write their result to the real stdout rather than an --out file.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 0, 4096)
		tmp := make([]byte, 4096)
		for {
			n, err := r.Read(tmp)
			if n > 0 {
				buf = append(buf, tmp[:n]...)
			}
			if err != nil {
				break
			}
		}
		done <- string(buf)
	}()

	fn()

	os.Stdout = orig
	w.Close()
	out := <-done
	r.Close()
	return out
}
