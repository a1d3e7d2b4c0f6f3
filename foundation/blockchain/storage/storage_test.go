package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vxoid/rbc/foundation/blockchain/database"
	"github.com/vxoid/rbc/foundation/blockchain/signature"
	"github.com/vxoid/rbc/foundation/blockchain/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_AppendAndIterate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")
	blocks := chain(t, 3)

	t.Log("Given the need to append blocks and read them back.")
	{
		log, err := storage.Open(storage.Config{Path: path})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open a new log: %s", failed, err)
		}
		defer log.Close()

		if log.Len() != 0 {
			t.Fatalf("\t%s\tShould start empty, got %d.", failed, log.Len())
		}
		if _, found, err := log.LastBlock(); err != nil || found {
			t.Fatalf("\t%s\tShould have no last block: %v", failed, err)
		}
		t.Logf("\t%s\tShould start empty.", success)

		for _, b := range blocks {
			if err := log.Push(b); err != nil {
				t.Fatalf("\t%s\tShould be able to push a block: %s", failed, err)
			}
		}

		if log.Len() != 3 || !log.AtStart() {
			t.Fatalf("\t%s\tShould count 3 blocks with the cursor at the start.", failed)
		}
		t.Logf("\t%s\tShould count 3 blocks with the cursor at the start.", success)

		for pass := 0; pass < 2; pass++ {
			for i := range blocks {
				got, err := log.Next()
				if err != nil {
					t.Fatalf("\t%s\tShould read block %d in pass %d: %s", failed, i, pass, err)
				}
				if !reflect.DeepEqual(got, blocks[i]) {
					t.Fatalf("\t%s\tShould read back block %d unchanged.", failed, i)
				}
			}

			if _, err := log.Next(); !errors.Is(err, storage.ErrEndOfPass) {
				t.Fatalf("\t%s\tShould report the end of the pass: %v", failed, err)
			}

			if !log.AtStart() {
				t.Fatalf("\t%s\tShould rewind once the pass is exhausted.", failed)
			}
		}
		t.Logf("\t%s\tShould read the blocks in order and rewind on exhaustion.", success)

		if _, err := log.Next(); err != nil {
			t.Fatalf("\t%s\tShould read the first block: %s", failed, err)
		}
		if err := log.Reset(); err != nil {
			t.Fatalf("\t%s\tShould be able to reset: %s", failed, err)
		}
		got, err := log.Next()
		if err != nil || !reflect.DeepEqual(got, blocks[0]) {
			t.Fatalf("\t%s\tShould read the first block again after a reset: %v", failed, err)
		}
		t.Logf("\t%s\tShould read the first block again after a reset.", success)

		last, found, err := log.LastBlock()
		if err != nil || !found || !reflect.DeepEqual(last, blocks[2]) {
			t.Fatalf("\t%s\tShould return the last block: %v", failed, err)
		}
		if !log.AtStart() {
			t.Fatalf("\t%s\tShould leave the cursor at the start.", failed)
		}
		t.Logf("\t%s\tShould return the last block from any cursor position.", success)

		some, err := log.Blocks(1, 1)
		if err != nil || len(some) != 1 || !reflect.DeepEqual(some[0], blocks[1]) {
			t.Fatalf("\t%s\tShould return the block at position 1: %v", failed, err)
		}
		if !log.AtStart() {
			t.Fatalf("\t%s\tShould reset after stopping early.", failed)
		}
		t.Logf("\t%s\tShould return a range of blocks.", success)
	}

	t.Log("Given the need to reopen a log.")
	{
		log, err := storage.Open(storage.Config{Path: path})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen the log: %s", failed, err)
		}
		defer log.Close()

		if log.Len() != 3 {
			t.Fatalf("\t%s\tShould count 3 blocks, got %d.", failed, log.Len())
		}
		t.Logf("\t%s\tShould count the blocks on open.", success)
	}
}

func Test_TornRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")
	blocks := chain(t, 2)

	log, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		t.Fatalf("Should be able to open a new log: %s", err)
	}
	for _, b := range blocks {
		if err := log.Push(b); err != nil {
			t.Fatalf("Should be able to push a block: %s", err)
		}
	}
	log.Close()

	// Simulate a crash in the middle of an append.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("Should be able to open the file: %s", err)
	}
	if _, err := f.Write(make([]byte, database.HeaderRecordSize/2)); err != nil {
		t.Fatalf("Should be able to write: %s", err)
	}
	f.Close()

	t.Log("Given a log with a torn trailing record.")
	{
		t.Logf("\tTest 0:\tWhen opening in permissive mode.")
		{
			var warnings []string
			ev := func(v string, args ...any) {
				if strings.Contains(v, "WARNING") {
					warnings = append(warnings, v)
				}
			}

			log, err := storage.Open(storage.Config{Path: path, EvHandler: ev})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open the log: %s", failed, err)
			}
			defer log.Close()

			if log.Len() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould count the 2 complete blocks, got %d.", failed, log.Len())
			}
			t.Logf("\t%s\tTest 0:\tShould count the 2 complete blocks.", success)

			if len(warnings) == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould narrate a warning.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould narrate a warning.", success)

			last, found, err := log.LastBlock()
			if err != nil || !found || !reflect.DeepEqual(last, blocks[1]) {
				t.Fatalf("\t%s\tTest 0:\tShould treat the torn record as the end: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould treat the torn record as the end.", success)
		}

		t.Logf("\tTest 1:\tWhen opening in strict mode.")
		{
			_, err := storage.Open(storage.Config{Path: path, Strict: true})
			if !errors.Is(err, storage.ErrCorrupt) {
				t.Fatalf("\t%s\tTest 1:\tShould fail with ErrCorrupt: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould fail with ErrCorrupt.", success)
		}

		t.Logf("\tTest 2:\tWhen appending past the torn record.")
		{
			log, err := storage.Open(storage.Config{Path: path})
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to open the log: %s", failed, err)
			}
			defer log.Close()

			if err := log.Push(blocks[0]); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to push a block: %s", failed, err)
			}

			got, err := log.Blocks(0, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to read the blocks: %s", failed, err)
			}
			if len(got) != 3 || !reflect.DeepEqual(got[2], blocks[0]) {
				t.Fatalf("\t%s\tTest 2:\tShould read the appended block after the complete ones, got %d blocks.", failed, len(got))
			}
			t.Logf("\t%s\tTest 2:\tShould read the appended block after the complete ones.", success)

			if _, err := storage.Open(storage.Config{Path: path, Strict: true}); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould no longer be corrupt: %s", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould no longer be corrupt.", success)
		}
	}
}

func Test_CorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")
	blocks := chain(t, 4)

	log, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		t.Fatalf("Should be able to open a new log: %s", err)
	}
	for _, b := range blocks {
		if err := log.Push(b); err != nil {
			t.Fatalf("Should be able to push a block: %s", err)
		}
	}
	log.Close()

	// Set the high half of the second block's timestamp.
	offset := int64(database.BlockPrefixSize+len(blocks[0].Trans)*database.TxRecordSize) + signature.DigestLength + 15
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		t.Fatalf("Should be able to open the file: %s", err)
	}
	if _, err := f.WriteAt([]byte{0xff}, offset); err != nil {
		t.Fatalf("Should be able to write: %s", err)
	}
	f.Close()

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Should be able to read the file: %s", err)
	}

	t.Log("Given a log with a corrupt record in the middle.")
	{
		log, err := storage.Open(storage.Config{Path: path})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the log: %s", failed, err)
		}
		defer log.Close()

		if log.Len() != 1 {
			t.Fatalf("\t%s\tShould count the blocks before the corrupt one, got %d.", failed, log.Len())
		}
		t.Logf("\t%s\tShould count the blocks before the corrupt one.", success)

		if err := log.Push(blocks[1]); !errors.Is(err, storage.ErrCorrupt) {
			t.Fatalf("\t%s\tShould refuse to append with ErrCorrupt: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to append with ErrCorrupt.", success)

		if log.Len() != 1 {
			t.Fatalf("\t%s\tShould not count the refused block, got %d.", failed, log.Len())
		}
		t.Logf("\t%s\tShould not count the refused block.", success)

		after, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the file: %s", failed, err)
		}
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("\t%s\tShould leave the file untouched: %d -> %d bytes.", failed, len(before), len(after))
		}
		t.Logf("\t%s\tShould leave the file untouched.", success)
	}
}

func Test_TornTransaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")
	blocks := chain(t, 2)

	log, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		t.Fatalf("Should be able to open a new log: %s", err)
	}
	for _, b := range blocks {
		if err := log.Push(b); err != nil {
			t.Fatalf("Should be able to push a block: %s", err)
		}
	}
	log.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Should be able to stat the file: %s", err)
	}

	// Cut the last block inside its coinbase record.
	if err := os.Truncate(path, info.Size()-database.TxRecordSize/2); err != nil {
		t.Fatalf("Should be able to truncate the file: %s", err)
	}

	t.Log("Given a log whose last block lost part of a transaction.")
	{
		log, err := storage.Open(storage.Config{Path: path})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the log: %s", failed, err)
		}
		defer log.Close()

		if log.Len() != 1 {
			t.Fatalf("\t%s\tShould count the complete block, got %d.", failed, log.Len())
		}
		t.Logf("\t%s\tShould count the complete block.", success)

		if err := log.Push(blocks[1]); !errors.Is(err, storage.ErrCorrupt) {
			t.Fatalf("\t%s\tShould refuse to append over a block prefix: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to append over a block prefix.", success)

		after, err := os.Stat(path)
		if err != nil || after.Size() != info.Size()-database.TxRecordSize/2 {
			t.Fatalf("\t%s\tShould keep every byte: %v", failed, err)
		}
		t.Logf("\t%s\tShould keep every byte.", success)
	}
}

func Test_ForEachStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.db")

	log, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		t.Fatalf("Should be able to open a new log: %s", err)
	}
	defer log.Close()

	for _, b := range chain(t, 3) {
		if err := log.Push(b); err != nil {
			t.Fatalf("Should be able to push a block: %s", err)
		}
	}

	t.Log("Given the need to abandon a pass.")
	{
		stop := errors.New("stop here")

		var seen int
		err := log.ForEach(func(database.Block) error {
			seen++
			if seen == 2 {
				return stop
			}
			return nil
		})

		if !errors.Is(err, stop) || seen != 2 {
			t.Fatalf("\t%s\tShould return the callback error after 2 blocks: %v", failed, err)
		}
		t.Logf("\t%s\tShould return the callback error.", success)

		if !log.AtStart() {
			t.Fatalf("\t%s\tShould reset the cursor.", failed)
		}
		t.Logf("\t%s\tShould reset the cursor.", success)

		var count int
		if err := log.ForEach(func(database.Block) error { count++; return nil }); err != nil || count != 3 {
			t.Fatalf("\t%s\tShould see every block in the next pass: %d %v", failed, count, err)
		}
		t.Logf("\t%s\tShould see every block in the next pass.", success)
	}
}

// =============================================================================

// chain seals n linked blocks at difficulty 1.
func chain(t *testing.T, n int) []database.Block {
	t.Helper()

	blocks := make([]database.Block, 0, n)

	prev := signature.ZeroDigest
	miner := signature.PublicKey{1}
	for i := 0; i < n; i++ {
		b, err := database.NewBlock(miner, nil, prev, 1, nil, nil)
		if err != nil {
			t.Fatalf("Should be able to seal a block: %s", err)
		}
		blocks = append(blocks, b)
		prev = b.Header.Hash
	}

	return blocks
}
