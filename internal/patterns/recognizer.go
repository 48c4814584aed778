/*
 * @Date: 2025-04-17 14:02:33
 * @Editors: Mr wpl
 * @Description: 加权模式识别,单遍组合匹配加频率聚合
 */
package patterns

import (
	"crypto/sha256"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/grd/stat"
	"github.com/rs/zerolog"

	"malsig/pkg/types"
)

// Pattern is one weighted match expression. The weight is carried for
// downstream scoring consumers; the matcher itself does not use it.
type Pattern struct {
	Expression string
	Weight     int
}

// MatchCounts maps pattern expression to its occurrence count over one
// corpus snapshot. Filtering produces derived views and never mutates it.
type MatchCounts map[string]int

// Result is the outcome of one combined matching pass.
type Result struct {
	Counts MatchCounts
	// FlaggedIndices are positions in the input string table where at
	// least one pattern matched, for IOC annotation.
	FlaggedIndices []int
}

// Recognizer evaluates a registered pattern set against string tables in a
// single combined pass. The pattern set is fixed at registration time;
// results per corpus+pattern-set pair are cached within a run and the
// cache is dropped whenever the pattern set changes.
type Recognizer struct {
	log      zerolog.Logger
	valid    []Pattern
	rejected []string
	combined *regexp.Regexp
	subexps  []int // per valid pattern: capture group count of its wrapped form
	groups   []int // valid pattern index -> combined submatch index

	mu    sync.RWMutex
	cache map[[32]byte]*Result
}

/**
 * @Description: 创建识别器
 * @author: Mr wpl
 * @param log zerolog.Logger: 日志
 * @return *Recognizer: 识别器
 */
func NewRecognizer(log zerolog.Logger) *Recognizer {
	return &Recognizer{
		log:   log,
		cache: make(map[[32]byte]*Result),
	}
}

/**
 * @Description: 注册模式。每条表达式独立编译,非法的记录日志并排除,
 *               绝不让单条坏模式中止匹配;模式集变更后缓存失效
 * @author: Mr wpl
 * @param ps []Pattern: 待注册模式
 */
func (r *Recognizer) AddPatterns(ps []Pattern) {
	for _, p := range ps {
		// Validate the wrapped form, since that is what enters the
		// combined alternation.
		re, err := regexp.Compile("(" + p.Expression + ")")
		if err != nil {
			r.rejected = append(r.rejected, p.Expression)
			r.log.Error().Str("pattern", p.Expression).Err(err).
				Msgf("%v: excluded from matching", types.ErrInvalidPattern)
			continue
		}
		r.valid = append(r.valid, p)
		r.subexps = append(r.subexps, re.NumSubexp())
	}
	r.rebuild()

	r.mu.Lock()
	r.cache = make(map[[32]byte]*Result)
	r.mu.Unlock()
}

// rebuild combines the valid patterns into one alternation, each wrapped
// in a capture group. Group identity is resolved structurally from the
// per-pattern capture counts recorded at registration; user expressions
// may carry arbitrary nested or named groups without stealing a slot.
func (r *Recognizer) rebuild() {
	if len(r.valid) == 0 {
		r.combined = nil
		return
	}
	parts := make([]string, len(r.valid))
	for i, p := range r.valid {
		parts[i] = "(" + p.Expression + ")"
	}
	combined, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		// Individually valid expressions should always combine; treat a
		// failure as no usable pattern set rather than aborting.
		r.log.Error().Err(err).Msg("combined pattern compilation failed")
		r.combined = nil
		return
	}
	r.combined = combined

	// Wrapper i sits at submatch 1 + sum of the preceding wrapped groups
	// (each wrapped form counts its wrapper plus its inner groups).
	r.groups = make([]int, len(r.valid))
	gi := 1
	for i := range r.valid {
		r.groups[i] = gi
		gi += r.subexps[i]
	}
}

// Patterns returns the registered valid patterns in registration order.
func (r *Recognizer) Patterns() []Pattern {
	out := make([]Pattern, len(r.valid))
	copy(out, r.valid)
	return out
}

// Rejected returns the expressions excluded at registration time.
func (r *Recognizer) Rejected() []string {
	out := make([]string, len(r.rejected))
	copy(out, r.rejected)
	return out
}

/**
 * @Description: 对字符串表做单遍组合匹配。所有模式看到同一语料快照,
 *               每个非空捕获组按最左非重叠出现次数计数
 * @author: Mr wpl
 * @param table []string: 字符串表
 * @return *Result: 计数与命中字符串下标
 */
func (r *Recognizer) Recognize(table []string) *Result {
	if r.combined == nil {
		return &Result{Counts: MatchCounts{}}
	}

	corpus := strings.Join(table, "\n")
	key := sha256.Sum256([]byte(corpus))

	r.mu.RLock()
	if cached, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	// Byte offset of each table entry inside the joined corpus, for
	// mapping match positions back to strings.
	starts := make([]int, len(table))
	off := 0
	for i, s := range table {
		starts[i] = off
		off += len(s) + 1
	}

	res := &Result{Counts: MatchCounts{}}
	flagged := make(map[int]struct{})

	for _, loc := range r.combined.FindAllStringSubmatchIndex(corpus, -1) {
		for pi, gi := range r.groups {
			if 2*gi+1 < len(loc) && loc[2*gi] >= 0 && loc[2*gi+1] > loc[2*gi] {
				res.Counts[r.valid[pi].Expression]++
				idx := sort.Search(len(starts), func(i int) bool { return starts[i] > loc[0] }) - 1
				if idx >= 0 && idx < len(table) {
					flagged[idx] = struct{}{}
				}
				break // one alternation branch fires per match
			}
		}
	}

	res.FlaggedIndices = make([]int, 0, len(flagged))
	for idx := range flagged {
		res.FlaggedIndices = append(res.FlaggedIndices, idx)
	}
	sort.Ints(res.FlaggedIndices)

	r.mu.Lock()
	r.cache[key] = res
	r.mu.Unlock()
	return res
}

/**
 * @Description: 基于非零计数均值计算动态阈值
 * @author: Mr wpl
 * @param counts MatchCounts: 计数
 * @return int: 阈值,最小为1
 */
func DynamicThreshold(counts MatchCounts) int {
	var nonZero stat.IntSlice
	for _, c := range counts {
		if c > 0 {
			nonZero = append(nonZero, int64(c))
		}
	}
	if len(nonZero) == 0 {
		return 1
	}
	return maxInt(1, int(math.Round(stat.Mean(nonZero))))
}

/**
 * @Description: 过滤低频模式,返回派生视图,不修改原计数
 * @author: Mr wpl
 * @param counts MatchCounts: 计数
 * @param threshold int: 阈值,<=0时使用动态阈值
 * @return MatchCounts: 过滤后的视图
 */
func FilterLowFrequency(counts MatchCounts, threshold int) MatchCounts {
	if threshold <= 0 {
		threshold = DynamicThreshold(counts)
	}
	filtered := make(MatchCounts)
	for expr, count := range counts {
		if count >= threshold {
			filtered[expr] = count
		}
	}
	return filtered
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
