package conntable

import (
	"net"
	"testing"

	"github.com/yoyo-hu/webserver/api"
)

type fakeConn struct {
	fd int
}

func (f *fakeConn) Init(fd int, addr net.Addr) { f.fd = fd }
func (f *fakeConn) Read() (int, error)         { return 0, nil }
func (f *fakeConn) Write() (int, error)        { return 0, nil }
func (f *fakeConn) Process() bool              { return true }
func (f *fakeConn) ToWriteBytes() int          { return 0 }
func (f *fakeConn) IsKeepAlive() bool          { return true }
func (f *fakeConn) Close()                     {}
func (f *fakeConn) Fd() int                    { return f.fd }

var _ api.HTTPConn = (*fakeConn)(nil)

func TestInsertGetRemove(t *testing.T) {
	tbl := New(4, 0)
	c := &fakeConn{fd: 7}
	if err := tbl.Insert(c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, ok := tbl.Get(7)
	if !ok || got != c {
		t.Fatalf("expected to find fd 7")
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", tbl.Len())
	}
	tbl.Remove(7)
	if _, ok := tbl.Get(7); ok {
		t.Fatal("expected fd 7 gone after Remove")
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected Len 0, got %d", tbl.Len())
	}
}

func TestInsertEnforcesMaxFd(t *testing.T) {
	tbl := New(4, 2)
	_ = tbl.Insert(&fakeConn{fd: 1})
	_ = tbl.Insert(&fakeConn{fd: 2})
	if err := tbl.Insert(&fakeConn{fd: 3}); err != api.ErrTooManyConns {
		t.Fatalf("expected ErrTooManyConns, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	tbl := New(4, 0)
	tbl.Remove(99) // never inserted
}

func TestRangeVisitsAllShards(t *testing.T) {
	tbl := New(4, 0)
	for i := 0; i < 20; i++ {
		_ = tbl.Insert(&fakeConn{fd: i})
	}
	seen := make(map[int]bool)
	tbl.Range(func(c api.HTTPConn) { seen[c.Fd()] = true })
	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct fds visited, got %d", len(seen))
	}
}
