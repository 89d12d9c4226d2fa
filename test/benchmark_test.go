package test

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rah-0/orbit/internal/datasource"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/pagination"
	"github.com/rah-0/orbit/internal/storage"
	"github.com/rah-0/orbit/internal/testutil/upstreamtest"
)

// bookAll books launchIDs for users with the specified concurrency
func bookAll(repo storage.UserRepository, users []*models.User, launchIDs []int, concurrency int) {
	ctx := context.Background()
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, user := range users {
		for _, launchID := range launchIDs {
			wg.Add(1)
			sem <- struct{}{} // Acquire semaphore

			go func() {
				defer wg.Done()
				defer func() { <-sem }() // Release semaphore

				repo.BookTrip(ctx, user.ID, launchID)
			}()
		}
	}

	wg.Wait()
}

func createUsers(tb testing.TB, repo storage.UserRepository, n int) []*models.User {
	users := make([]*models.User, n)
	for i := range users {
		user, err := repo.FindOrCreateUser(context.Background(), fmt.Sprintf("bench-%d@example.com", i))
		if err != nil {
			tb.Fatalf("creating user: %v", err)
		}
		users[i] = user
	}
	return users
}

func shuffledIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

// BenchmarkRepositoryBookings benchmarks both stores with different booking
// loads and concurrency levels
func BenchmarkRepositoryBookings(b *testing.B) {
	loads := []struct {
		name     string
		users    int
		launches int
	}{
		{"10bookings", 2, 5},
		{"100bookings", 10, 10},
		{"1kbookings", 10, 100},
	}
	workerCounts := []int{1, 2, 4}

	stores := map[string]func(b *testing.B) storage.UserRepository{
		"memory": func(b *testing.B) storage.UserRepository { return storage.NewInMemoryRepository() },
		"sqlite": func(b *testing.B) storage.UserRepository {
			repo, err := storage.Open(filepath.Join(b.TempDir(), "bench.db"))
			if err != nil {
				b.Fatalf("opening sqlite: %v", err)
			}
			return repo
		},
	}

	for storeName, open := range stores {
		for _, load := range loads {
			for _, workers := range workerCounts {
				b.Run(fmt.Sprintf("%s_%s_%dworkers", storeName, load.name, workers), func(b *testing.B) {
					repo := open(b)
					defer repo.Close()
					users := createUsers(b, repo, load.users)
					launchIDs := shuffledIDs(load.launches)

					b.ResetTimer()

					for i := 0; i < b.N; i++ {
						bookAll(repo, users, launchIDs, workers)
					}
				})
			}
		}
	}
}

// BenchmarkPaginate benchmarks cursor pagination over catalogues of different sizes
func BenchmarkPaginate(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		launches := make([]models.Launch, size)
		for i := range launches {
			launches[i] = models.Launch{ID: size - i, Cursor: strconv.Itoa(size - i)}
		}
		after := strconv.Itoa(size / 2)

		b.Run(fmt.Sprintf("%dlaunches", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				pagination.Paginate(launches, after, pagination.DefaultPageSize, func(l models.Launch) string { return l.Cursor })
			}
		})
	}
}

// BenchmarkLaunchFanout benchmarks by-id lookups against a local provider
// with different fan-out limits
func BenchmarkLaunchFanout(b *testing.B) {
	provider := upstreamtest.New(b, upstreamtest.Records(50))
	ids := shuffledIDs(50)

	for _, limit := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("limit%d", limit), func(b *testing.B) {
			upstream, err := datasource.NewUpstream(provider.Client(), provider.URL, limit, zerolog.Nop())
			if err != nil {
				b.Fatalf("creating upstream: %v", err)
			}

			for i := 0; i < b.N; i++ {
				// A fresh LaunchAPI per iteration so nothing is served from cache
				if _, err := upstream.NewLaunchAPI().GetLaunchesByIDs(context.Background(), ids); err != nil {
					b.Fatalf("fetching launches: %v", err)
				}
			}
		})
	}
}

// TestConcurrentBookingsAreKept verifies that heavily concurrent bookings for
// one user all land exactly once
func TestConcurrentBookingsAreKept(t *testing.T) {
	repo := storage.NewInMemoryRepository()
	users := createUsers(t, repo, 1)

	launchIDs := shuffledIDs(500)
	bookAll(repo, users, launchIDs, 128)
	// Booking twice must not duplicate trips
	bookAll(repo, users, launchIDs, 128)

	booked, err := repo.GetLaunchIDsByUser(context.Background(), users[0].ID)
	if err != nil {
		t.Fatalf("listing trips: %v", err)
	}
	if len(booked) != len(launchIDs) {
		t.Errorf("Expected %d trips, got %d", len(launchIDs), len(booked))
	}

	seen := make(map[int]bool, len(booked))
	for _, id := range booked {
		if seen[id] {
			t.Errorf("Launch %d booked twice", id)
		}
		seen[id] = true
	}
}
