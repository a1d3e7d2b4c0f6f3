// Package storage handles all the lower level support for maintaining the
// blockchain on disk. Blocks are appended to a single file and read back
// with a forward only cursor.
package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vxoid/rbc/foundation/blockchain/database"
)

// Set of errors returned by the block log.
var (
	ErrEndOfPass = errors.New("end of pass")
	ErrCorrupt   = errors.New("block log is corrupt")
)

// errStop abandons a pass early inside this package.
var errStop = errors.New("stop")

// =============================================================================

// Config represents the configuration required to open a block log.
type Config struct {
	Path string

	// Strict makes an unreadable record fail Open and Next with ErrCorrupt.
	// Otherwise it's narrated as a warning and reads as the end of the log,
	// hiding it and everything after it.
	Strict bool

	EvHandler database.EventHandler
}

// cursor represents where the next read will happen.
type cursor int

const (
	cursorAtStart cursor = iota
	cursorInPass
)

// Log manages reading and appending blocks to a file. It supports exactly
// one reader and one writer, the owner of the value.
type Log struct {
	path      string
	strict    bool
	evHandler database.EventHandler
	file      *os.File
	reader    *bufio.Reader
	cursor    cursor
	length    uint64
	size      int64
}

// Open opens or creates the block log and scans it once to count the blocks
// it holds.
func Open(cfg Config) (*Log, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening block log: %w", err)
	}

	l := Log{
		path:      cfg.Path,
		strict:    cfg.Strict,
		evHandler: ev,
		file:      file,
		reader:    bufio.NewReader(file),
		cursor:    cursorAtStart,
	}

	var length uint64
	var size int64
	err = l.ForEach(func(block database.Block) error {
		length++
		size += recordSize(block)
		return nil
	})
	if err != nil {
		file.Close()
		return nil, err
	}
	l.length = length
	l.size = size

	ev("storage: Open: path[%s] blocks[%d]", cfg.Path, length)

	return &l, nil
}

// Close releases the file.
func (l *Log) Close() error {
	return l.file.Close()
}

// Path returns the location of the log on disk.
func (l *Log) Path() string {
	return l.path
}

// Len returns the number of committed blocks.
func (l *Log) Len() uint64 {
	return l.length
}

// Push appends the block after the last readable block and flushes it to
// disk. The read cursor is left at the start of the log.
//
// Unreadable bytes past the last readable block shorter than a block prefix
// are a torn append and are cut off first. Anything longer may hold a
// committed block, so Push refuses with ErrCorrupt and leaves the file as
// it is.
func (l *Log) Push(block database.Block) error {
	data, err := block.MarshalBinary()
	if err != nil {
		return err
	}

	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat block log: %w", err)
	}

	if extra := info.Size() - l.size; extra > 0 {
		if extra >= database.BlockPrefixSize {
			l.evHandler("storage: Push: ERROR: %d unreadable bytes at offset %d", extra, l.size)
			return fmt.Errorf("%w: %d unreadable bytes at offset %d", ErrCorrupt, extra, l.size)
		}

		l.evHandler("storage: Push: WARNING: dropping torn record: %d bytes at offset %d", extra, l.size)
		if err := l.file.Truncate(l.size); err != nil {
			return fmt.Errorf("truncating block log: %w", err)
		}
	}

	if _, err := l.file.Seek(l.size, io.SeekStart); err != nil {
		return fmt.Errorf("seeking end of block log: %w", err)
	}

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing block log: %w", err)
	}

	if err := l.rewind(); err != nil {
		return err
	}

	l.length++
	l.size += int64(len(data))

	return nil
}

// =============================================================================

// AtStart reports whether the next call to Next reads the first block.
func (l *Log) AtStart() bool {
	return l.cursor == cursorAtStart
}

// BeginPass makes sure the next call to Next reads the first block.
func (l *Log) BeginPass() error {
	if l.cursor == cursorAtStart {
		return nil
	}
	return l.rewind()
}

// Reset abandons a partial pass and moves the cursor back to the start.
func (l *Log) Reset() error {
	return l.rewind()
}

// Next reads the block under the cursor and moves past it. When there are
// no more blocks the cursor goes back to the start and ErrEndOfPass is
// returned, so the following call begins a new pass. A record that can't be
// read ends the pass the same way, or fails with ErrCorrupt in strict mode.
func (l *Log) Next() (database.Block, error) {
	l.cursor = cursorInPass

	block, err := database.ReadBlock(l.reader)
	if err == nil {
		return block, nil
	}

	if rerr := l.rewind(); rerr != nil {
		return database.Block{}, rerr
	}

	if errors.Is(err, io.EOF) {
		return database.Block{}, ErrEndOfPass
	}

	l.evHandler("storage: Next: WARNING: can't read block: %s", err)

	if l.strict {
		return database.Block{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return database.Block{}, ErrEndOfPass
}

// ForEach performs one full pass over the log calling fn for every block.
// If fn returns an error the pass is abandoned, the cursor reset and the
// error returned.
func (l *Log) ForEach(fn func(block database.Block) error) error {
	if err := l.BeginPass(); err != nil {
		return err
	}

	for {
		block, err := l.Next()
		if errors.Is(err, ErrEndOfPass) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := fn(block); err != nil {
			if rerr := l.Reset(); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
	}
}

// LastBlock drains a full pass and returns the last block seen. The bool is
// false when the log is empty. The cursor is left at the start.
func (l *Log) LastBlock() (database.Block, bool, error) {
	var last database.Block
	var found bool

	err := l.ForEach(func(block database.Block) error {
		last = block
		found = true
		return nil
	})
	if err != nil {
		return database.Block{}, false, err
	}

	return last, found, nil
}

// Blocks returns the blocks at positions from through to inclusive, where
// the first block in the log is at position 0.
func (l *Log) Blocks(from uint64, to uint64) ([]database.Block, error) {
	var out []database.Block

	var pos uint64
	err := l.ForEach(func(block database.Block) error {
		if pos > to {
			return errStop
		}
		if pos >= from {
			out = append(out, block)
		}
		pos++
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	return out, nil
}

// =============================================================================

// recordSize returns the number of bytes the block occupies on disk.
func recordSize(block database.Block) int64 {
	return int64(database.BlockPrefixSize + len(block.Trans)*database.TxRecordSize)
}

// rewind moves the read position back to the start of the file.
func (l *Log) rewind() error {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding block log: %w", err)
	}

	l.reader.Reset(l.file)
	l.cursor = cursorAtStart

	return nil
}
