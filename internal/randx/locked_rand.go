package randx

import (
	"math/rand/v2"
	"sync"
	"time"
)

// LockedRand 는 여러 요청이 함께 쓰는 난수원이다. 모든 호출은 mu 로 직렬화된다.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New 는 r 을 감싼다. nil 이면 현재 시각으로 시드한 PCG 를 쓴다.
func New(r *rand.Rand) *LockedRand {
	if r == nil {
		return NewSeeded(uint64(time.Now().UnixNano()))
	}
	return &LockedRand{r: r}
}

// NewSeeded 는 같은 seed 면 같은 수열을 내는 난수원을 만든다. 테스트용.
func NewSeeded(seed uint64) *LockedRand {
	return &LockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN 은 [0, n) 범위 정수를 반환한다. n <= 0 이면 0.
func (l *LockedRand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Pick 은 items 중 하나를 고른다. 비어 있으면 ok 가 false.
func Pick[T any](l *LockedRand, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[l.IntN(len(items))], true
}
