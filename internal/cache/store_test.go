package cache

import (
    "errors"
    "os"
    "path/filepath"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, capacity int) *Store {
    t.Helper()
    s, err := NewStore(t.TempDir(), capacity)
    require.NoError(t, err)
    return s
}

func TestFingerprintDeterministic(t *testing.T) {
    a := NewFingerprint("src1", 3, "thumb-200-q85")
    b := NewFingerprint("src1", 3, "thumb-200-q85")
    assert.Equal(t, a, b)

    c := NewFingerprint("src1", 4, "thumb-200-q85")
    assert.NotEqual(t, a.Hash, c.Hash)

    d := NewFingerprint("src1", 3, "thumb-400-q85")
    assert.NotEqual(t, a.Hash, d.Hash)
}

func TestStorePutGet(t *testing.T) {
    s := newTestStore(t, 10)
    fp := NewFingerprint("src1", 0, "thumb")
    require.NoError(t, s.Put(fp, []byte("payload")))

    got, ok := s.Get(fp)
    require.True(t, ok)
    assert.Equal(t, []byte("payload"), got)

    _, ok = s.Get(NewFingerprint("src1", 1, "thumb"))
    assert.False(t, ok)
}

func TestStoreDiskFallthrough(t *testing.T) {
    s := newTestStore(t, 2)
    first := NewFingerprint("src1", 0, "thumb")
    require.NoError(t, s.Put(first, []byte("v0")))

    // push first out of the memory tier
    for i := 1; i <= 2; i++ {
        require.NoError(t, s.Put(NewFingerprint("src1", i, "thumb"), []byte("x")))
    }

    // still served, now from disk
    got, ok := s.Get(first)
    require.True(t, ok)
    assert.Equal(t, []byte("v0"), got)
}

func TestStoreDiskLayout(t *testing.T) {
    dir := t.TempDir()
    s, err := NewStore(dir, 10)
    require.NoError(t, err)

    fp := NewFingerprint("src1", 0, "thumb")
    require.NoError(t, s.Put(fp, []byte("v")))

    _, err = os.Stat(filepath.Join(dir, "src1", fp.Hash+".jpg"))
    require.NoError(t, err)
}

func TestStoreInvalidate(t *testing.T) {
    s := newTestStore(t, 10)
    fp := NewFingerprint("src1", 0, "thumb")
    require.NoError(t, s.Put(fp, []byte("v")))

    s.Invalidate(fp)
    _, ok := s.Get(fp)
    assert.False(t, ok)
}

func TestStoreCleanupAgesOutDiskOnly(t *testing.T) {
    s := newTestStore(t, 10)
    fp := NewFingerprint("src1", 0, "thumb")
    require.NoError(t, s.Put(fp, []byte("v")))

    removed := s.Cleanup(0)
    assert.Equal(t, 1, removed)

    // memory tier still serves it
    got, ok := s.Get(fp)
    require.True(t, ok)
    assert.Equal(t, []byte("v"), got)
}

func TestStoreCleanupKeepsFreshEntries(t *testing.T) {
    s := newTestStore(t, 10)
    require.NoError(t, s.Put(NewFingerprint("src1", 0, "thumb"), []byte("v")))
    assert.Equal(t, 0, s.Cleanup(time.Hour))
}

func TestStoreReleaseSource(t *testing.T) {
    dir := t.TempDir()
    s, err := NewStore(dir, 1)
    require.NoError(t, err)

    keep := NewFingerprint("src2", 0, "thumb")
    drop := NewFingerprint("src1", 0, "thumb")
    require.NoError(t, s.Put(drop, []byte("a")))
    require.NoError(t, s.Put(keep, []byte("b")))

    s.ReleaseSource("src1")
    _, err = os.Stat(filepath.Join(dir, "src1"))
    assert.True(t, os.IsNotExist(err))
    _, err = os.Stat(filepath.Join(dir, "src2", keep.Hash+".jpg"))
    assert.NoError(t, err)
}

func TestGetOrComputeCaches(t *testing.T) {
    s := newTestStore(t, 10)
    fp := NewFingerprint("src1", 0, "thumb")

    calls := 0
    produce := func() ([]byte, error) {
        calls++
        return []byte("rendered"), nil
    }

    got, err := s.GetOrCompute(fp, produce)
    require.NoError(t, err)
    assert.Equal(t, []byte("rendered"), got)

    got, err = s.GetOrCompute(fp, produce)
    require.NoError(t, err)
    assert.Equal(t, []byte("rendered"), got)
    assert.Equal(t, 1, calls)
}

func TestGetOrComputeError(t *testing.T) {
    s := newTestStore(t, 10)
    fp := NewFingerprint("src1", 0, "thumb")
    boom := errors.New("render failed")

    _, err := s.GetOrCompute(fp, func() ([]byte, error) { return nil, boom })
    require.ErrorIs(t, err, boom)

    // a failed compute caches nothing
    _, ok := s.Get(fp)
    assert.False(t, ok)
}

func TestGetOrComputeSingleProducer(t *testing.T) {
    s := newTestStore(t, 10)
    fp := NewFingerprint("src1", 0, "thumb")

    var calls int32
    produce := func() ([]byte, error) {
        atomic.AddInt32(&calls, 1)
        time.Sleep(20 * time.Millisecond)
        return []byte("rendered"), nil
    }

    var wg sync.WaitGroup
    for i := 0; i < 8; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            got, err := s.GetOrCompute(fp, produce)
            assert.NoError(t, err)
            assert.Equal(t, []byte("rendered"), got)
        }()
    }
    wg.Wait()
    assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
