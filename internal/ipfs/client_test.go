package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeNode records every file added through /api/v0/add.
type fakeNode struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  bool
}

func newFakeNode() *fakeNode {
	return &fakeNode{files: map[string][]byte{}}
}

func (n *fakeNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/add" {
			http.NotFound(w, r)
			return
		}
		if n.fail {
			http.Error(w, "node is down", http.StatusInternalServerError)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		n.mu.Lock()
		n.files[header.Filename] = data
		count := len(n.files)
		n.mu.Unlock()

		_ = json.NewEncoder(w).Encode(addResponse{
			Name: header.Filename,
			Hash: fmt.Sprintf("Qm%08d", count),
			Size: fmt.Sprint(len(data)),
		})
	}
}

func (n *fakeNode) file(name string) ([]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	data, ok := n.files[name]
	return data, ok
}

func TestUploadImageAndMetadata(t *testing.T) {
	node := newFakeNode()
	srv := httptest.NewServer(node.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	image := []byte("\x89PNG fake image bytes")

	var lastUploaded, lastTotal int64
	var mu sync.Mutex
	up := client.Upload(context.Background(), image, "logo.png", Metadata{
		Name:        "Test Token",
		Symbol:      "TEST",
		Description: "a token",
	}, func(uploaded, total int64) {
		mu.Lock()
		lastUploaded, lastTotal = uploaded, total
		mu.Unlock()
	})

	var res UploadResult
	select {
	case res = <-up.Result():
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not finish")
	}
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, "ipfs://Qm00000002", res.URI)

	stored, ok := node.file("logo.png")
	require.True(t, ok)
	assert.Equal(t, image, stored)

	metaRaw, ok := node.file("metadata.json")
	require.True(t, ok)
	var doc tokenMetadataDoc
	require.NoError(t, json.Unmarshal(metaRaw, &doc))
	assert.Equal(t, "Test Token", doc.Name)
	assert.Equal(t, "TEST", doc.Symbol)
	assert.Equal(t, "ipfs://Qm00000001", doc.Image)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(len(image)), lastTotal)
	assert.Equal(t, lastTotal, lastUploaded)
}

func TestUploadMetadataOnly(t *testing.T) {
	node := newFakeNode()
	srv := httptest.NewServer(node.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	up := client.Upload(context.Background(), nil, "", Metadata{
		Name:   "Bare",
		Symbol: "BARE",
	}, nil)

	res := <-up.Result()
	require.NoError(t, res.Err)
	assert.Equal(t, "ipfs://Qm00000001", res.URI)

	metaRaw, ok := node.file("metadata.json")
	require.True(t, ok)
	var doc tokenMetadataDoc
	require.NoError(t, json.Unmarshal(metaRaw, &doc))
	assert.Empty(t, doc.Image)

	_, ok = node.file("logo.png")
	assert.False(t, ok)
}

func TestUploadServerError(t *testing.T) {
	node := newFakeNode()
	node.fail = true
	srv := httptest.NewServer(node.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	up := client.Upload(context.Background(), []byte("img"), "x.png", Metadata{Name: "N", Symbol: "S"}, nil)

	res := <-up.Result()
	require.Error(t, res.Err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "image upload failed")
}

func TestUploadCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewClient(srv.URL, zap.NewNop())
	up := client.Upload(context.Background(), []byte("img"), "x.png", Metadata{Name: "N", Symbol: "S"}, nil)
	up.Cancel()

	select {
	case res := <-up.Result():
		require.Error(t, res.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not abort the upload")
	}
}
