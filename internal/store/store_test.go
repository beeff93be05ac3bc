package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "servers.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPutAndGet(t *testing.T) {
	st := openTestStore(t)

	id, err := st.Put("vps", "http://203.0.113.10:8000", "secret")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty id")
	}

	byID, err := st.Get(id)
	if err != nil {
		t.Fatalf("Get by id: %v", err)
	}
	if byID.URL != "http://203.0.113.10:8000" || byID.Token != "secret" {
		t.Errorf("unexpected record: %+v", byID)
	}

	byName, err := st.Get("vps")
	if err != nil {
		t.Fatalf("Get by name: %v", err)
	}
	if byName.ID != id {
		t.Errorf("lookup by name returned %s, want %s", byName.ID, id)
	}
}

func TestGetMissingIsErrServerNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Get("nope")
	if !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("expected ErrServerNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	st := openTestStore(t)

	if _, err := st.Put("a", "http://a:8000", "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put("b", "http://b:8000", "t2"); err != nil {
		t.Fatal(err)
	}

	servers, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}

	if err := st.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	servers, _ = st.List()
	if len(servers) != 1 || servers[0].Name != "b" {
		t.Errorf("unexpected servers after delete: %+v", servers)
	}

	if err := st.Delete("a"); !errors.Is(err, ErrServerNotFound) {
		t.Errorf("double delete should be ErrServerNotFound, got %v", err)
	}
}
