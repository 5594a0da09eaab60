// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package querycache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errTransient = errors.New("transient")

func testCache() *Cache {
	return New(Options{
		Retries:     2,
		RetryDelay:  time.Millisecond,
		StaleTime:   time.Minute,
		CacheTime:   5 * time.Minute,
		ShouldRetry: func(err error) bool { return errors.Is(err, errTransient) },
	})
}

// fakeClock drives the cache's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestFetch_CachesUntilStale(t *testing.T) {
	c := testCache()
	clock := &fakeClock{now: time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)}
	c.now = clock.Now

	var calls atomic.Int32
	read := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"Kodakara"}, nil
	}
	key := Key{Resource: Panchayats}

	for i := 0; i < 3; i++ {
		got, err := Fetch(context.Background(), c, key, read)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"Kodakara"}, got); diff != "" {
			t.Errorf("Fetch mismatch (-want +got):\n%s", diff)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected one read while fresh, got %d", calls.Load())
	}

	clock.Advance(2 * time.Minute)
	if _, err := Fetch(context.Background(), c, key, read); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected refetch after stale time, got %d reads", calls.Load())
	}
}

func TestFetch_PrunesUnusedEntries(t *testing.T) {
	c := testCache()
	clock := &fakeClock{now: time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)}
	c.now = clock.Now

	wards := Key{Resource: Wards, Parent: "p1"}
	Fetch(context.Background(), c, wards, func(ctx context.Context) (int, error) { return 3, nil })

	clock.Advance(6 * time.Minute)
	Fetch(context.Background(), c, Key{Resource: Panchayats}, func(ctx context.Context) (int, error) { return 1, nil })

	if c.Has(wards) {
		t.Error("Expected entry unused past cache time to be pruned")
	}
}

func TestFetch_SharesConcurrentReads(t *testing.T) {
	c := testCache()

	release := make(chan struct{})
	var calls atomic.Int32
	read := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "ward list", nil
	}

	const callers = 8
	var started, done sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			v, err := Fetch(context.Background(), c, Key{Resource: Wards, Parent: "p1"}, read)
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected one shared read, got %d", calls.Load())
	}
	for i, v := range results {
		if v != "ward list" {
			t.Errorf("Caller %d got %q", i, v)
		}
	}
}

func TestFetch_RetriesOnlyRetryableErrors(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		wantCalls int32
	}{
		{"transient retried twice", errTransient, 3},
		{"client error not retried", errors.New("Ward not found"), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := testCache()
			var calls atomic.Int32
			_, err := Fetch(context.Background(), c, Key{Resource: Ward, Parent: "w1"}, func(ctx context.Context) (int, error) {
				calls.Add(1)
				return 0, tc.err
			})

			if !errors.Is(err, tc.err) {
				t.Errorf("Expected %v, got %v", tc.err, err)
			}
			if calls.Load() != tc.wantCalls {
				t.Errorf("Expected %d calls, got %d", tc.wantCalls, calls.Load())
			}
		})
	}
}

func TestFetch_RecoversAfterTransientFailure(t *testing.T) {
	c := testCache()
	var calls atomic.Int32
	got, err := Fetch(context.Background(), c, Key{Resource: Voters, Parent: "b1"}, func(ctx context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("Expected 42 after retries, got %d, %v", got, err)
	}
}

func TestFetch_AbandonedCallerDoesNotCancelRead(t *testing.T) {
	c := testCache()
	key := Key{Resource: Booths, Parent: "w1"}

	release := make(chan struct{})
	finished := make(chan struct{})
	var readCtxErr atomic.Value

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, func(readCtx context.Context) (string, error) {
			<-release
			if readCtx.Err() != nil {
				readCtxErr.Store(readCtx.Err())
			}
			defer close(finished)
			return "booths", nil
		})
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected abandoned caller to return context.Canceled, got %v", err)
	}

	close(release)
	<-finished
	// Let the shared call store its result.
	deadline := time.Now().Add(time.Second)
	for !c.Has(key) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if readCtxErr.Load() != nil {
		t.Errorf("Read context was cancelled: %v", readCtxErr.Load())
	}
	if !c.Has(key) {
		t.Fatal("Expected abandoned read to fill the cache")
	}
	got, err := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
		return "", errors.New("should be served from cache")
	})
	if err != nil || got != "booths" {
		t.Errorf("Expected cached booths, got %q, %v", got, err)
	}
}

func TestInvalidate(t *testing.T) {
	c := testCache()
	fill := func(k Key) {
		Fetch(context.Background(), c, k, func(ctx context.Context) (int, error) { return 1, nil })
	}

	w1 := Key{Resource: Wards, Parent: "p1"}
	w2 := Key{Resource: Wards, Parent: "p2"}
	all := Key{Resource: Wards}
	booths := Key{Resource: Booths, Parent: "w1"}
	for _, k := range []Key{w1, w2, all, booths} {
		fill(k)
	}

	c.Invalidate(w1)
	if c.Has(w1) || !c.Has(w2) || !c.Has(all) {
		t.Error("Expected only wards/p1 dropped")
	}

	c.Invalidate(Key{Resource: Wards, Parent: AnyParent})
	if c.Has(w2) || c.Has(all) {
		t.Error("Expected every wards key dropped by AnyParent")
	}
	if !c.Has(booths) {
		t.Error("Expected other resources untouched")
	}
}

func TestInvalidate_InFlightReadDoesNotRepopulate(t *testing.T) {
	c := testCache()
	key := Key{Resource: Voters, Parent: "b1"}

	release := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
			<-release
			return "before", nil
		})
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.Invalidate(key)
	close(release)
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}

	if c.Has(key) {
		t.Error("Read started before invalidation must not fill the cache")
	}
	got, _ := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) { return "after", nil })
	if got != "after" {
		t.Errorf("Expected refetch after invalidation, got %q", got)
	}
}

func TestMutate(t *testing.T) {
	c := testCache()
	voters := Key{Resource: Voters, Parent: "b1"}
	otherBooth := Key{Resource: Voters, Parent: "b2"}
	for _, k := range []Key{voters, otherBooth} {
		Fetch(context.Background(), c, k, func(ctx context.Context) (int, error) { return 1, nil })
	}

	t.Run("failure leaves cache and runs once", func(t *testing.T) {
		var calls int
		err := c.Mutate(context.Background(), UpdateVoterStatus, Scope{ID: "v1", Booth: "b1"}, func(ctx context.Context) error {
			calls++
			return errTransient
		})
		if !errors.Is(err, errTransient) || calls != 1 {
			t.Errorf("Expected one failed attempt, got %d calls, %v", calls, err)
		}
		if !c.Has(voters) {
			t.Error("Failed write must not invalidate")
		}
	})

	t.Run("success invalidates declared keys", func(t *testing.T) {
		err := c.Mutate(context.Background(), UpdateVoterStatus, Scope{ID: "v1", Booth: "b1"}, func(ctx context.Context) error { return nil })
		if err != nil {
			t.Fatal(err)
		}
		if c.Has(voters) {
			t.Error("Expected booth voters invalidated")
		}
		if !c.Has(otherBooth) {
			t.Error("Expected other booth untouched")
		}
	})
}

func TestTable(t *testing.T) {
	all := []Mutation{
		CreatePanchayat, UpdatePanchayat, DeletePanchayat,
		CreateWard, UpdateWard, DeleteWard,
		CreateBooth, UpdateBooth, DeleteBooth,
		CreateVoter, UpdateVoter, UpdateVoterStatus, DeleteVoter,
	}

	declared := Table.Mutations()
	sort.Slice(declared, func(i, j int) bool { return declared[i] < declared[j] })
	want := append([]Mutation(nil), all...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if diff := cmp.Diff(want, declared); diff != "" {
		t.Errorf("Table coverage mismatch (-want +got):\n%s", diff)
	}

	got := Table.KeysFor(CreateBooth, Scope{ID: "b9", Ward: "w1", Panchayat: "p1"})
	wantKeys := []Key{{Booths, "w1"}, {Booths, ""}, {Wards, "p1"}}
	if diff := cmp.Diff(wantKeys, got); diff != "" {
		t.Errorf("CreateBooth keys (-want +got):\n%s", diff)
	}

	got = Table.KeysFor(CreateWard, Scope{})
	if got[0] != (Key{Wards, AnyParent}) {
		t.Errorf("Expected unknown parent to widen to AnyParent, got %v", got[0])
	}
}

func TestClear_InFlightReadOfUncachedKeyDoesNotRepopulate(t *testing.T) {
	c := testCache()
	key := Key{Resource: Panchayats}

	started := make(chan struct{})
	release := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "previous session", nil
		})
		errCh <- err
	}()

	<-started
	c.Clear()
	close(release)
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}

	if c.Has(key) {
		t.Error("Read started before Clear must not fill the cache")
	}
	got, _ := Fetch(context.Background(), c, key, func(ctx context.Context) (string, error) { return "next session", nil })
	if got != "next session" {
		t.Errorf("Expected a fresh read after Clear, got %q", got)
	}
}
