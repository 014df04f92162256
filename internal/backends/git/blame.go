package git

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"
)

// ErrUncommitted is returned for lines that only exist in the working tree.
var ErrUncommitted = stderrors.New("line is not committed")

// zeroHash marks uncommitted lines in blame output.
const zeroHash = "0000000000000000000000000000000000000000"

// LineTime returns the author time of line in file, a repo-relative path.
// Lines blame cannot attribute fall back to the file's most recent commit.
func (g *Adapter) LineTime(ctx context.Context, file string, line int) (time.Time, error) {
	res := g.blame(ctx, file)
	if res.err == nil {
		t, ok := res.lines[line]
		switch {
		case ok && t.IsZero():
			return time.Time{}, ErrUncommitted
		case ok:
			return t, nil
		}
	}
	return g.LastModified(ctx, file)
}

// LastModified returns the author time of the last commit touching file.
func (g *Adapter) LastModified(ctx context.Context, file string) (time.Time, error) {
	out, err := g.executeGitCommand(ctx, "log", "-1", "--format=%aI", "--", file)
	if err != nil {
		return time.Time{}, err
	}
	if out == "" {
		return time.Time{}, ErrUncommitted
	}
	return time.Parse(time.RFC3339, out)
}

// blame runs git blame once per file and caches the result, errors included.
// A caller whose ctx ends stops waiting; the shared run carries on for the others.
func (g *Adapter) blame(ctx context.Context, file string) blameResult {
	g.mu.Lock()
	res, ok := g.blames[file]
	g.mu.Unlock()
	if ok {
		return res
	}

	ch := g.group.DoChan(file, func() (interface{}, error) {
		res := g.loadBlame(ctx, file)
		g.mu.Lock()
		g.blames[file] = res
		g.mu.Unlock()
		return res, nil
	})
	select {
	case r := <-ch:
		return r.Val.(blameResult)
	case <-ctx.Done():
		return blameResult{err: ctx.Err()}
	}
}

// loadBlame blames file detached from the caller's cancellation, bounded by
// the adapter's query timeout, so every waiter sees the same answer.
func (g *Adapter) loadBlame(ctx context.Context, file string) blameResult {
	out, err := g.executeGitCommand(context.WithoutCancel(ctx), "blame", "--line-porcelain", "--", file)
	if err != nil {
		return blameResult{err: err}
	}
	return blameResult{lines: parsePorcelain(out)}
}

// parsePorcelain maps final line numbers to author times.
// Uncommitted lines map to the zero time.
func parsePorcelain(out string) map[int]time.Time {
	lines := make(map[int]time.Time)
	var (
		current     int
		uncommitted bool
	)
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "\t") {
			continue
		}
		fields := strings.Fields(l)
		if len(fields) >= 3 && len(fields[0]) == 40 && isHex(fields[0]) {
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				current = 0
				continue
			}
			current = n
			uncommitted = fields[0] == zeroHash
			if uncommitted {
				lines[current] = time.Time{}
			}
			continue
		}
		if current > 0 && !uncommitted && len(fields) == 2 && fields[0] == "author-time" {
			if sec, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				lines[current] = time.Unix(sec, 0).UTC()
			}
		}
	}
	return lines
}

func isHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
