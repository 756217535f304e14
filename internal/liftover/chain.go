package liftover

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/variant"
)

// Chain converts positions using a UCSC chain file such as
// hg19ToHg38.over.chain.gz. Blocks are indexed per source chromosome.
type Chain struct {
	trees  map[string]*blockTree
	blocks int
}

// LoadChain reads a plain or gzipped chain file.
func LoadChain(path string) (*Chain, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.Wrap(failure.NotFound, path, err)
		}
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	c, err := ReadChain(r)
	if err != nil {
		return nil, fmt.Errorf("read chain file %s: %w", path, err)
	}
	return c, nil
}

// ReadChain parses chain-format alignments from r.
func ReadChain(r io.Reader) (*Chain, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	byChrom := make(map[string][]block)
	var (
		cur        *chainHeader
		tPos, qPos int64
		lineNumber int
	)

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			cur = nil
			continue
		}

		if strings.HasPrefix(line, "chain") {
			h, err := parseChainHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			cur = h
			tPos, qPos = h.tStart, h.qStart
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: alignment data outside a chain", lineNumber)
		}

		fields := strings.Fields(line)
		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid block size %q", lineNumber, fields[0])
		}
		src := variant.NormalizeChrom(cur.tName)
		byChrom[src] = append(byChrom[src], block{
			start:       tPos,
			end:         tPos + size,
			tStart:      qPos,
			targetChrom: variant.NormalizeChrom(cur.qName),
			targetSize:  cur.qSize,
			reverse:     cur.qStrand == "-",
			score:       cur.score,
		})

		switch len(fields) {
		case 1:
			cur = nil
		case 3:
			dt, err1 := strconv.ParseInt(fields[1], 10, 64)
			dq, err2 := strconv.ParseInt(fields[2], 10, 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: invalid gap sizes", lineNumber)
			}
			tPos += size + dt
			qPos += size + dq
		default:
			return nil, fmt.Errorf("line %d: expected 1 or 3 fields, got %d", lineNumber, len(fields))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan chain: %w", err)
	}

	c := &Chain{trees: make(map[string]*blockTree, len(byChrom))}
	for chrom, blocks := range byChrom {
		c.trees[chrom] = buildBlockTree(blocks)
		c.blocks += len(blocks)
	}
	return c, nil
}

// BlockCount returns the number of aligned blocks loaded.
func (c *Chain) BlockCount() int { return c.blocks }

// Convert maps a 1-based position. Only blocks landing on the same
// chromosome count; among those the highest score wins.
func (c *Chain) Convert(_ context.Context, chrom string, pos int64) (int64, error) {
	src := variant.NormalizeChrom(chrom)
	tree, ok := c.trees[src]
	if !ok {
		return 0, ErrUnmapped
	}

	var best *block
	for _, h := range tree.find(pos - 1) {
		if h.targetChrom != src {
			continue
		}
		if best == nil || h.score > best.score {
			best = &h
		}
	}
	if best == nil {
		return 0, ErrUnmapped
	}
	return best.mapPos(pos-1) + 1, nil
}

type chainHeader struct {
	score   int64
	tName   string
	tStart  int64
	qName   string
	qSize   int64
	qStrand string
	qStart  int64
}

// parseChainHeader parses
// "chain score tName tSize tStrand tStart tEnd qName qSize qStrand qStart qEnd id".
func parseChainHeader(line string) (*chainHeader, error) {
	f := strings.Fields(line)
	if len(f) < 12 {
		return nil, fmt.Errorf("chain header has %d fields, want at least 12", len(f))
	}
	ints := make([]int64, 0, 5)
	for _, i := range []int{1, 5, 8, 10} {
		v, err := strconv.ParseInt(f[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chain header field %d: %w", i, err)
		}
		ints = append(ints, v)
	}
	return &chainHeader{
		score:   ints[0],
		tName:   f[2],
		tStart:  ints[1],
		qName:   f[7],
		qSize:   ints[2],
		qStrand: f[9],
		qStart:  ints[3],
	}, nil
}
