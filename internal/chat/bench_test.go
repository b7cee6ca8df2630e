package chat

import (
	"fmt"
	"sync"
	"testing"
)

func benchmarkBroadcast(b *testing.B, recipients int) {
	r := NewRegistry()
	for i := 0; i < recipients; i++ {
		r.Connect(ConnectionID(i+1), fmt.Sprintf("client_%d", i))
	}
	for i := 0; i < recipients; i++ {
		r.PullPending(ConnectionID(i + 1))
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		r.Broadcast(1, "payload")
		// Drain so queues do not grow across iterations.
		for j := 0; j < recipients; j++ {
			r.PullPending(ConnectionID(j + 1))
		}
	}
}

func BenchmarkBroadcast_10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast_100(b *testing.B) { benchmarkBroadcast(b, 100) }
func BenchmarkBroadcast_500(b *testing.B) { benchmarkBroadcast(b, 500) }

func TestConcurrentClientsStayConsistent(t *testing.T) {
	r := NewRegistry()
	const workers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := ConnectionID(w + 1)
			for i := 0; i < rounds; i++ {
				r.Connect(id, fmt.Sprintf("worker_%d", w))
				r.Join(id, "shared")
				r.Broadcast(id, "ping")
				r.PullPending(id)
				r.Disconnect(id)
			}
		}(w)
	}
	wg.Wait()

	if ids := r.Clients(); len(ids) != 0 {
		t.Fatalf("clients remain after all disconnects: %v", ids)
	}
	if active := r.ActiveChannels(); len(active) != 0 {
		t.Fatalf("channels remain active: %v", active)
	}
}
