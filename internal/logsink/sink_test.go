package logsink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/store"
)

type countingValuer struct {
	calls *int
	text  string
}

func (c countingValuer) LogValue() slog.Value {
	*c.calls++
	return slog.StringValue(c.text)
}

func TestRecorder_ResolvesAndStampsEvents(t *testing.T) {
	rec := NewRecorder()
	calls := 0

	rec.LogEvent(event.CategoryCheck, event.StatusPass, event.Fields{
		event.KeyTestID:      "t-1",
		event.KeyDescription: countingValuer{calls: &calls, text: "count is 1"},
	})
	rec.LogException(fault.New(fault.KeyNotFound, "no value for %q", "count"))

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, "t-1", events[0].TestID)
	assert.Equal(t, "count is 1", events[0].Fields[event.KeyDescription])
	assert.Equal(t, 1, calls)

	assert.Equal(t, event.CategoryException, events[1].Category)
	assert.Equal(t, string(fault.KeyNotFound), events[1].Fields[event.KeyCode])

	assert.Len(t, rec.Filter(event.CategoryCheck, ""), 1)
	assert.Len(t, rec.Filter(event.CategoryCheck, event.StatusFail), 0)
	assert.Len(t, rec.ForTest("t-1"), 1)

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
}

func TestRecorder_ConcurrentWriters(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec.LogEvent(event.CategoryContext, event.StatusStore, nil)
			}
		}()
	}
	wg.Wait()

	events := rec.Events()
	require.Len(t, events, 400)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestSlog_SkipsDisabledLevelsWithoutResolving(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sink := NewSlog(logger)
	calls := 0

	sink.LogEvent(event.CategoryCheck, event.StatusPass, event.Fields{
		event.KeyDescription: countingValuer{calls: &calls, text: "never rendered"},
	})
	assert.Equal(t, 0, calls)
	assert.Empty(t, buf.String())

	sink.LogEvent(event.CategoryCheck, event.StatusFail, event.Fields{
		event.KeyDescription: countingValuer{calls: &calls, text: "rendered"},
	})
	assert.Equal(t, 1, calls)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "description=rendered")
}

func TestSlog_LogException(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlog(slog.New(slog.NewTextHandler(&buf, nil)))

	err := fault.New(fault.DuplicateKey, "key %q already stored", "count")
	err.TestID = "t-9"
	sink.LogException(err)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "code=DUPLICATE_KEY")
	assert.Contains(t, out, "testId=t-9")
}

func TestTee_FansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := Tee{a, Discard{}, b}

	sink.LogEvent(event.CategoryLifecycle, event.StatusStart, event.Fields{event.KeyTestID: "x"})
	sink.LogException(errors.New("boom"))

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "boom", b.Events()[1].Fields[event.KeyError])
}

func TestStore_PersistsAndResumesSeq(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.db")

	st, err := store.Open(path)
	require.NoError(t, err)

	sink, err := NewStore(ctx, st, nil)
	require.NoError(t, err)
	sink.LogEvent(event.CategoryLifecycle, event.StatusStart, event.Fields{event.KeyTestID: "t-1"})
	sink.LogException(fault.New(fault.NullValue, "value for %q is null", "k"))
	require.NoError(t, st.Close())

	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	sink, err = NewStore(ctx, st, nil)
	require.NoError(t, err)
	sink.LogEvent(event.CategoryLifecycle, event.StatusEnd, event.Fields{event.KeyTestID: "t-1"})

	events, err := st.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{events[0].Seq, events[1].Seq, events[2].Seq})
	assert.Equal(t, event.StatusEnd, events[2].Status)
	assert.Equal(t, "t-1", events[2].TestID)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
