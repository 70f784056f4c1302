package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// AuditEntry is one line of the pricing audit log.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	ModelID   string    `json:"model_id,omitempty"`
	Detail    any       `json:"detail,omitempty"`
}

// AuditSink receives admin pricing edits.
type AuditSink interface {
	Record(entry AuditEntry)
	Shutdown()
}

// NoopAudit discards every entry.
type NoopAudit struct{}

func (NoopAudit) Record(AuditEntry) {}
func (NoopAudit) Shutdown()         {}

// Archiver ships a closed audit file to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}

const archiveTimeout = 30 * time.Second

// AuditLogger writes audit entries as JSON lines, buffered and flushed
// periodically, rotating files once they reach maxSize.
type AuditLogger struct {
	fileTemplate  string // e.g. "/var/log/pricing/audit-%s.jsonl"
	maxSize       int64
	maxFiles      int
	flushInterval time.Duration

	mu          sync.Mutex
	currentFile string
	file        *os.File
	writer      *bufio.Writer
	currentSize int64

	archiver Archiver
	archives sync.WaitGroup

	entries chan AuditEntry
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// NewAuditLogger opens the first file and starts the writer goroutine.
// bufferSize entries can be queued; beyond that entries are dropped.
func NewAuditLogger(fileTemplate string, maxSize int64, maxFiles, bufferSize int, flushInterval time.Duration) (*AuditLogger, error) {
	a := &AuditLogger{
		fileTemplate:  fileTemplate,
		maxSize:       maxSize,
		maxFiles:      maxFiles,
		flushInterval: flushInterval,
		entries:       make(chan AuditEntry, bufferSize),
		done:          make(chan struct{}),
	}

	if err := a.openFile(); err != nil {
		return nil, err
	}

	a.wg.Add(1)
	go a.run()

	return a, nil
}

func (a *AuditLogger) openFile() error {
	a.currentFile = fmt.Sprintf(a.fileTemplate, time.Now().Format("20060102150405.000000000"))
	if err := os.MkdirAll(filepath.Dir(a.currentFile), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	file, err := os.OpenFile(a.currentFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	a.currentSize = fi.Size()
	a.file = file
	a.writer = bufio.NewWriter(file)
	return nil
}

// SetArchiver ships every rotated file, and the last one on Shutdown, to ar.
func (a *AuditLogger) SetArchiver(ar Archiver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archiver = ar
}

// archive must be called with mu held.
func (a *AuditLogger) archive(path string) {
	if a.archiver == nil {
		return
	}
	ar := a.archiver
	a.archives.Add(1)
	go func() {
		defer a.archives.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := ar.Archive(ctx, path); err != nil {
			Errorf("failed to archive audit file %s: %v", path, err)
		}
	}()
}

// CurrentFile returns the file being written.
func (a *AuditLogger) CurrentFile() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentFile
}

// Record queues an entry. A full queue drops the entry.
func (a *AuditLogger) Record(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}
	select {
	case a.entries <- entry:
	default:
		Warningf("audit queue full, dropping %s on %s", entry.Action, entry.ModelID)
	}
}

// Shutdown drains queued entries, flushes and closes the file.
func (a *AuditLogger) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	close(a.done)
	a.wg.Wait()

	a.mu.Lock()
	a.archive(a.currentFile)
	a.mu.Unlock()
	a.archives.Wait()
}

func (a *AuditLogger) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-a.entries:
			a.write(entry)
		case <-ticker.C:
			a.mu.Lock()
			_ = a.writer.Flush()
			a.mu.Unlock()
		case <-a.done:
			for {
				select {
				case entry := <-a.entries:
					a.write(entry)
				default:
					a.mu.Lock()
					_ = a.writer.Flush()
					_ = a.file.Close()
					a.mu.Unlock()
					return
				}
			}
		}
	}
}

func (a *AuditLogger) write(entry AuditEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		Errorf("failed to encode audit entry: %v", err)
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentSize+int64(len(data)) > a.maxSize && a.currentSize > 0 {
		if err := a.rotate(); err != nil {
			Errorf("failed to rotate audit log: %v", err)
		}
	}
	n, _ := a.writer.Write(data)
	a.currentSize += int64(n)
}

// rotate must be called with mu held.
func (a *AuditLogger) rotate() error {
	if err := a.writer.Flush(); err != nil {
		return err
	}
	if err := a.file.Close(); err != nil {
		return err
	}
	prev := a.currentFile
	if err := a.openFile(); err != nil {
		return err
	}
	a.archive(prev)
	return a.cleanupOldFiles()
}

func (a *AuditLogger) cleanupOldFiles() error {
	matches, err := filepath.Glob(fmt.Sprintf(a.fileTemplate, "*"))
	if err != nil {
		return err
	}
	// Timestamps in the names sort chronologically.
	sort.Strings(matches)
	for i := 0; i < len(matches)-a.maxFiles; i++ {
		_ = os.Remove(matches[i])
	}
	return nil
}
