package guard

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

//go:embed rulepacks/*.yml
var embeddedRulepacks embed.FS

const defaultPackThreshold = 0.7

type rawRulepack struct {
	Version   int       `yaml:"version"`
	Threshold float64   `yaml:"threshold"`
	Rules     []rawRule `yaml:"rules"`
}

type rawRule struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Pattern string   `yaml:"pattern"`
	Phrases []string `yaml:"phrases"`
	Weight  float64  `yaml:"weight"`
}

type regexRule struct {
	ID      string
	Pattern *regexp.Regexp
	Weight  float64
}

type phraseRule struct {
	ID     string
	Phrase string
	Weight float64
}

type compiledPack struct {
	Name      string
	Threshold float64
	Regexes   []regexRule
	Phrases   []phraseRule
	matcher   *ahocorasick.Matcher
}

// loadRulepacks 는 dir 아래 *.yml/*.yaml 을 읽어 컴파일한다. 깨진 팩은 경고 후 건너뛴다.
func loadRulepacks(fsys fs.FS, dir string, logger *slog.Logger) []compiledPack {
	paths, err := rulepackFiles(fsys, dir)
	if err != nil || len(paths) == 0 {
		logger.Warn("rulepacks_not_found", "dir", dir, "err", err)
		return nil
	}

	packs := make([]compiledPack, 0, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			logger.Warn("rulepack_read_failed", "path", p, "err", err)
			continue
		}
		var raw rawRulepack
		if err := yaml.Unmarshal(data, &raw); err != nil {
			logger.Warn("rulepack_parse_failed", "path", p, "err", err)
			continue
		}
		pack, err := compileRulepack(path.Base(p), raw)
		if err != nil {
			logger.Warn("rulepack_compile_failed", "path", p, "err", err)
			continue
		}
		packs = append(packs, pack)
	}
	return packs
}

func rulepackFiles(fsys fs.FS, dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob rulepacks: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func compileRulepack(name string, raw rawRulepack) (compiledPack, error) {
	pack := compiledPack{Name: name, Threshold: raw.Threshold}
	if pack.Threshold <= 0 {
		pack.Threshold = defaultPackThreshold
	}

	for _, rule := range raw.Rules {
		if rule.ID == "" {
			return compiledPack{}, errors.New("rule without id")
		}
		switch strings.ToLower(strings.TrimSpace(rule.Type)) {
		case "regex":
			if rule.Pattern == "" {
				return compiledPack{}, fmt.Errorf("regex rule %s has no pattern", rule.ID)
			}
			pattern, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return compiledPack{}, fmt.Errorf("compile rule %s: %w", rule.ID, err)
			}
			pack.Regexes = append(pack.Regexes, regexRule{ID: rule.ID, Pattern: pattern, Weight: rule.Weight})
		case "phrases":
			if len(rule.Phrases) == 0 {
				return compiledPack{}, fmt.Errorf("phrases rule %s is empty", rule.ID)
			}
			for _, phrase := range rule.Phrases {
				pack.Phrases = append(pack.Phrases, phraseRule{
					ID:     rule.ID,
					Phrase: strings.ToLower(phrase),
					Weight: rule.Weight,
				})
			}
		default:
			return compiledPack{}, fmt.Errorf("unknown rule type: %s", rule.Type)
		}
	}

	if len(pack.Phrases) > 0 {
		patterns := make([][]byte, 0, len(pack.Phrases))
		for _, phrase := range pack.Phrases {
			patterns = append(patterns, []byte(phrase.Phrase))
		}
		pack.matcher = ahocorasick.NewMatcher(patterns)
	}
	return pack, nil
}

// score 는 정규화된 텍스트에 대한 팩의 가중치 합과 매칭 목록을 반환한다.
func (p compiledPack) score(text string) (float64, []Match) {
	var total float64
	var hits []Match
	for _, rule := range p.Regexes {
		if rule.Pattern.MatchString(text) {
			total += rule.Weight
			hits = append(hits, Match{ID: rule.ID, Weight: rule.Weight})
		}
	}
	if p.matcher == nil {
		return total, hits
	}

	seen := make(map[string]bool)
	for _, index := range p.matcher.MatchThreadSafe([]byte(strings.ToLower(text))) {
		if index < 0 || index >= len(p.Phrases) {
			continue
		}
		rule := p.Phrases[index]
		// 같은 규칙의 여러 문구는 한 번만 센다.
		if seen[rule.ID] || rule.Weight <= 0 {
			continue
		}
		seen[rule.ID] = true
		total += rule.Weight
		hits = append(hits, Match{ID: rule.ID, Weight: rule.Weight})
	}
	return total, hits
}
