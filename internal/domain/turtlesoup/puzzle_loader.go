package turtlesoup

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/park285/turtle-soup-judge/internal/randx"
)

//go:embed puzzles/*.json
var puzzlesFS embed.FS

// ErrNoPuzzles: 컬렉션이 비어 있을 때 반환됩니다.
var ErrNoPuzzles = errors.New("no puzzles loaded")

// ErrNoPuzzleForDifficulty: 요청한 난이도의 퍼즐이 없습니다.
var ErrNoPuzzleForDifficulty = errors.New("no puzzle for difficulty")

// PuzzleLoader: 정적 퍼즐 컬렉션을 로드하고 인덱스/ID로 조회합니다.
// 파일명 순, 파일 안 배열 순으로 정렬되므로 인덱스는 재시작해도 동일합니다.
type PuzzleLoader struct {
	fsys fs.FS
	dir  string

	mu           sync.RWMutex
	all          []Puzzle
	byID         map[string]int
	byDifficulty map[int][]int
	rnd          *randx.LockedRand
}

var _ Provider = (*PuzzleLoader)(nil)

// NewPuzzleLoader: 내장 퍼즐 컬렉션으로 로더를 초기화합니다.
func NewPuzzleLoader() (*PuzzleLoader, error) {
	return NewPuzzleLoaderFS(puzzlesFS, "puzzles")
}

// NewPuzzleLoaderFS: fsys 의 dir/*.json 으로 로더를 초기화합니다.
func NewPuzzleLoaderFS(fsys fs.FS, dir string) (*PuzzleLoader, error) {
	loader := &PuzzleLoader{
		fsys: fsys,
		dir:  dir,
		rnd:  randx.New(nil),
	}
	if _, err := loader.Reload(); err != nil {
		return nil, err
	}
	return loader, nil
}

// Reload: 퍼즐 파일을 다시 읽습니다. 실패하면 기존 컬렉션을 유지합니다.
func (l *PuzzleLoader) Reload() (int, error) {
	all, err := readPuzzles(l.fsys, l.dir)
	if err != nil {
		return 0, err
	}

	byID := make(map[string]int, len(all))
	byDifficulty := make(map[int][]int)
	for i, puzzle := range all {
		byID[puzzle.ID] = i
		byDifficulty[puzzle.Difficulty] = append(byDifficulty[puzzle.Difficulty], i)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = all
	l.byID = byID
	l.byDifficulty = byDifficulty
	return len(all), nil
}

// Count: 퍼즐 수를 반환합니다.
func (l *PuzzleLoader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.all)
}

// GetByIndex: 인덱스를 [0, Count-1]로 보정해 퍼즐을 반환합니다. 비어 있으면 nil.
func (l *PuzzleLoader) GetByIndex(index int) *Puzzle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.all) == 0 {
		return nil
	}
	index = ClampIndex(index, len(l.all))
	puzzle := l.all[index]
	return &puzzle
}

// GetByID: ID로 퍼즐과 인덱스를 조회합니다.
func (l *PuzzleLoader) GetByID(id string) (*Puzzle, int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	index, ok := l.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, 0, false
	}
	puzzle := l.all[index]
	return &puzzle, index, true
}

// All: 모든 퍼즐의 복사본을 반환합니다.
func (l *PuzzleLoader) All() []Puzzle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.all)
}

// CountByDifficulty: 난이도별 퍼즐 개수를 반환합니다.
func (l *PuzzleLoader) CountByDifficulty() map[int]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := make(map[int]int, len(l.byDifficulty))
	for difficulty, indexes := range l.byDifficulty {
		counts[difficulty] = len(indexes)
	}
	return counts
}

// RandomByDifficulty: 난이도가 같은 퍼즐 중 하나를 무작위로 고릅니다. difficulty 가 0 이면 전체에서 고릅니다.
func (l *PuzzleLoader) RandomByDifficulty(difficulty int) (*Puzzle, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.all) == 0 {
		return nil, 0, ErrNoPuzzles
	}
	if difficulty == 0 {
		index := l.rnd.IntN(len(l.all))
		puzzle := l.all[index]
		return &puzzle, index, nil
	}
	index, ok := randx.Pick(l.rnd, l.byDifficulty[difficulty])
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d", ErrNoPuzzleForDifficulty, difficulty)
	}
	puzzle := l.all[index]
	return &puzzle, index, nil
}

// ClampIndex: 인덱스를 [0, count-1] 범위로 보정합니다. count 는 1 이상이어야 합니다.
func ClampIndex(index int, count int) int {
	if index < 0 {
		return 0
	}
	if index >= count {
		return count - 1
	}
	return index
}

func readPuzzles(fsys fs.FS, dir string) ([]Puzzle, error) {
	paths, err := fs.Glob(fsys, dir+"/*.json")
	if err != nil {
		return nil, fmt.Errorf("glob puzzles: %w", err)
	}
	slices.Sort(paths)

	combined := make([]Puzzle, 0)
	seen := make(map[string]string)
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read puzzle file: %w", err)
		}
		var parsed []Puzzle
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decode puzzle file %s: %w", path, err)
		}
		for _, puzzle := range parsed {
			puzzle.ID = strings.TrimSpace(puzzle.ID)
			if puzzle.ID == "" {
				return nil, fmt.Errorf("puzzle without id in %s", path)
			}
			if prev, dup := seen[puzzle.ID]; dup {
				return nil, fmt.Errorf("duplicate puzzle id %q in %s (first in %s)", puzzle.ID, path, prev)
			}
			seen[puzzle.ID] = path
			puzzle.Difficulty = ClampDifficulty(puzzle.Difficulty)
			combined = append(combined, puzzle)
		}
	}
	return combined, nil
}
