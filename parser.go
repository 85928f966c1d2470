/*
Copyright © 2026 the ctramplog authors.
This file is part of ctramplog.

ctramplog is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctramplog is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctramplog.  If not, see <http://www.gnu.org/licenses/>.
*/

package ctramplog

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BlockHandler receives each utility block as soon as it is decoded.
type BlockHandler interface {
	HandleBlock(*Block) error
}

// BlockHandlerFunc adapts a function to the BlockHandler interface.
type BlockHandlerFunc func(*Block) error

// HandleBlock calls f(b).
func (f BlockHandlerFunc) HandleBlock(b *Block) error { return f(b) }

// Result accumulates what a parse has produced.
type Result struct {
	// Summaries holds one summary per block in log order.
	Summaries []BlockSummary

	// ModeChoice holds the mode choice logsum blocks in log order.
	// Destination choice blocks are only passed to the BlockHandler
	// because they are too large to keep.
	ModeChoice []*Block

	// Lines is the number of log lines read.
	Lines int
}

// Parser scans CT-RAMP debug logs for utility blocks.
type Parser struct {
	decoder Decoder

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// NewParser creates a parser that labels expression rows using labels
// and decodes alternatives using alts.
func NewParser(labels *LabelSet, alts Alternatives) (*Parser, error) {
	if labels == nil {
		return nil, fmt.Errorf("ctramplog: no row labels provided")
	}
	if err := alts.Validate(); err != nil {
		return nil, err
	}
	return &Parser{
		decoder: Decoder{Alternatives: alts, Labels: labels},
		Log:     logrus.StandardLogger(),
	}, nil
}

// Parse reads r from beginning to end, decoding every utility block it
// finds and passing it to h, which may be nil. Parsing stops at the first
// error; the returned Result holds everything decoded up to that point.
func (p *Parser) Parse(ctx context.Context, r io.Reader, h BlockHandler) (*Result, error) {
	res := new(Result)
	lr := NewLineReader(r)
	defer func() { res.Lines = lr.Line() }()

	for lr.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		hdr := Classify(lr.Text())
		if hdr.Kind == NoHeader {
			continue
		}
		log := p.Log.WithFields(logrus.Fields{
			"kind":      hdr.Kind,
			"variant":   hdr.Variant,
			"purpose":   hdr.Purpose,
			"hh":        hdr.HH,
			"personNum": hdr.PersonNum,
			"line":      lr.Line(),
		})
		b, err := p.decoder.DecodeBlock(lr, hdr)
		if err != nil {
			log.WithError(err).Error("decoding utility block")
			return res, err
		}
		s := Summarize(b)
		res.Summaries = append(res.Summaries, s)
		if b.Kind == ModeChoice {
			res.ModeChoice = append(res.ModeChoice, b)
		}
		log.WithFields(logrus.Fields{
			"records": len(b.Records),
			"logsum":  s.Logsum,
		}).Info("decoded utility block")

		if h != nil {
			if err := h.HandleBlock(b); err != nil {
				return res, err
			}
		}
	}
	if err := lr.Err(); err != nil {
		return res, errors.Wrapf(err, "ctramplog: reading log after line %d", lr.Line())
	}
	return res, nil
}

// ParseBlocks decodes every block in r and returns them all. It is
// meant for small logs and tests; use Parse for full model logs.
func (p *Parser) ParseBlocks(ctx context.Context, r io.Reader) ([]*Block, error) {
	var blocks []*Block
	_, err := p.Parse(ctx, r, BlockHandlerFunc(func(b *Block) error {
		blocks = append(blocks, b)
		return nil
	}))
	return blocks, err
}
