// Package storage handles reading and writing chain exports on disk. An
// export is a file with one JSON document per block.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"sync"

	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
)

// JSONStorage manages reading and writing of blocks to an export file.
type JSONStorage struct {
	dbPath string
	dbFile *os.File
	mu     sync.Mutex
}

// NewJSONStorage provides access to the export file, creating it if it
// doesn't exist.
func NewJSONStorage(dbPath string) (*JSONStorage, error) {
	dbFile, err := os.OpenFile(dbPath, os.O_APPEND|os.O_RDWR, 0600)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if errors.Is(err, fs.ErrNotExist) {
		dbFile, err = os.OpenFile(dbPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
		if err != nil {
			return nil, err
		}
	}

	s := JSONStorage{
		dbPath: dbPath,
		dbFile: dbFile,
	}

	return &s, nil
}

// Close cleanly releases the export file.
func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dbFile.Close()
}

// Write adds a new block to the end of the file.
func (s *JSONStorage) Write(blockData database.BlockData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Marshal the block for writing to disk.
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	// Write the new block to the file.
	if _, err := s.dbFile.Write(append(data, '\n')); err != nil {
		return err
	}

	return nil
}

// Reset truncates the file so a new export can be written.
func (s *JSONStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close and remove the current file.
	if err := s.dbFile.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.dbPath, err)
	}
	if err := os.Remove(s.dbPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// Open a new file with create.
	dbFile, err := os.OpenFile(s.dbPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	s.dbFile = dbFile

	return nil
}

// Foreach returns an iterator to walk through all the blocks in the file
// starting with the first one.
func (s *JSONStorage) Foreach() *JSONIterator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.dbFile.Seek(0, io.SeekStart); err != nil {
		return &JSONIterator{err: err}
	}

	return &JSONIterator{
		scanner: bufio.NewScanner(s.dbFile),
	}
}

// =============================================================================

// JSONIterator walks the blocks of an export file.
type JSONIterator struct {
	scanner *bufio.Scanner
	done    bool
	err     error
}

// Next retrieves the next block from the file. At the end of the file, Done
// reports true and io.EOF is returned.
func (i *JSONIterator) Next() (database.BlockData, error) {
	if i.err != nil {
		return database.BlockData{}, i.err
	}

	if i.done {
		return database.BlockData{}, io.EOF
	}

	if !i.scanner.Scan() {
		if err := i.scanner.Err(); err != nil {
			return database.BlockData{}, err
		}
		i.done = true
		return database.BlockData{}, io.EOF
	}

	var blockData database.BlockData
	if err := json.Unmarshal(i.scanner.Bytes(), &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// Done returns the end of file value.
func (i *JSONIterator) Done() bool {
	return i.done
}

// =============================================================================

// WriteChain replaces the contents of the file at path with the blocks.
func WriteChain(path string, blocks iter.Seq[database.Block]) (int, error) {
	s, err := NewJSONStorage(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if err := s.Reset(); err != nil {
		return 0, err
	}

	var n int
	for block := range blocks {
		if err := s.Write(database.NewBlockData(block)); err != nil {
			return n, fmt.Errorf("writing blk[%d]: %w", block.Num(), err)
		}
		n++
	}

	return n, nil
}

// ReadBlocks reads every block from the file at path. The blocks keep the
// digests recorded in the file.
func ReadBlocks(path string) ([]database.Block, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	s, err := NewJSONStorage(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var blocks []database.Block

	it := s.Foreach()
	for blockData, err := it.Next(); !it.Done(); blockData, err = it.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading block %d: %w", len(blocks), err)
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}
