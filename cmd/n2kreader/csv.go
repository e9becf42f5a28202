package main

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/n2k"
)

type csvPGNs []csvPGNFields

// csvFiles keeps CSV files open for the lifetime of the reader. Header row is written only to newly created files.
type csvFiles struct {
	dir   string
	files map[string]*csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func newCSVFiles(dir string) *csvFiles {
	return &csvFiles{dir: dir, files: map[string]*csvFile{}}
}

func (c *csvFiles) open(cpf csvPGNFields) (*csvFile, error) {
	if cf, ok := c.files[cpf.fileName]; ok {
		return cf, nil
	}
	path := filepath.Join(c.dir, cpf.fileName)
	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("csv file check failure, err: %w", err)
	}
	if fi != nil && fi.IsDir() {
		return nil, fmt.Errorf("csv file overlaps with directory, file: %s", path)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if fi == nil {
		if err := cf.w.Write(cpf.names); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv failed to write header, err: %w", err)
		}
	}
	c.files[cpf.fileName] = cf
	return cf, nil
}

// Write appends row to CSV file of given PGN fields
func (c *csvFiles) Write(cpf csvPGNFields, values []string) error {
	cf, err := c.open(cpf)
	if err != nil {
		return err
	}
	if err := cf.w.Write(values); err != nil {
		return fmt.Errorf("csv failed to write row, err: %w", err)
	}
	cf.w.Flush()
	return cf.w.Error()
}

// Close closes all opened CSV files
func (c *csvFiles) Close() error {
	var result error
	for name, cf := range c.files {
		cf.w.Flush()
		if err := cf.f.Close(); err != nil && result == nil {
			result = err
		}
		delete(c.files, name)
	}
	return result
}

// channelByField maps CSV field name to decoded value channel. Field name is channel name in lower case without
// spaces, e.g. `rateofturn`.
func channelByField(name string) (uint8, bool) {
	for i, cn := range n2k.ChannelNames() {
		if i < int(n2k.ChannelHeading) {
			continue
		}
		if strings.EqualFold(strings.ReplaceAll(cn, " ", ""), name) {
			return uint8(i), true
		}
	}
	return 0, false
}

func (c csvPGNs) Match(frame n2k.Frame, now time.Time) ([]string, csvPGNFields, bool) {
	ok := false
	var found csvPGNFields
	for _, p := range c {
		if p.PGN == frame.PGN {
			found = p
			ok = true
			break
		}
	}
	if !ok {
		return nil, csvPGNFields{}, false
	}
	values := map[uint8]float32{}
	for _, m := range n2k.Messages(0, frame) {
		if v, ok := m.Data.(marinelog.Float); ok {
			values[m.Channel] = float32(v)
		}
	}
	if len(values) == 0 {
		return nil, csvPGNFields{}, false
	}

	fields := make([]string, 0, len(found.fields)+1)

	for _, fID := range found.fields {
		v := ""
		switch fID.name {
		case "_time":
			tmpNow := now
			if fID.truncate > 0 {
				tmpNow = now.Truncate(fID.truncate)
			}
			v = strconv.FormatInt(tmpNow.Unix(), 10)
		case "_time_ms":
			tmpNow := now
			if fID.truncate > 0 {
				tmpNow = now.Truncate(fID.truncate)
			}
			v = strconv.FormatInt(tmpNow.UnixMilli(), 10)
		case "_time_nano":
			tmpNow := now
			if fID.truncate > 0 {
				tmpNow = now.Truncate(fID.truncate)
			}
			v = strconv.FormatInt(tmpNow.UnixNano(), 10)
		case "_src":
			v = strconv.FormatInt(int64(frame.Source), 10)
		case "_dst":
			v = strconv.FormatInt(int64(frame.Destination), 10)
		case "_prio":
			v = strconv.FormatInt(int64(frame.Priority), 10)
		default:
			if ch, ok := channelByField(fID.name); ok {
				if fv, ok := values[ch]; ok {
					v = fmt.Sprintf("%.8g", fv)
				}
			}
		}
		fields = append(fields, v)
	}
	if len(fields) <= 1 {
		return nil, csvPGNFields{}, false
	}
	return fields, found, true
}

type csvPGNFields struct {
	PGN      uint32
	fileName string
	names    []string
	fields   []field
}

type field struct {
	name     string
	truncate time.Duration
}

func parseCSVFieldsRaw(raw string) ([]csvPGNFields, error) {
	// 129025:latitude,longitude;127250:_time_ms(100ms),heading
	result := make([]csvPGNFields, 0)
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ";")
	for _, p := range parts {
		pgnRaw, fieldsRaw, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		pgn, err := strconv.ParseUint(strings.TrimSpace(pgnRaw), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("csv fields: failed to parse PGN, err: %w", err)
		}

		tmpNames := make([]string, 0)
		tmpFields := make([]field, 0)
		for _, f := range strings.Split(fieldsRaw, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			var trunc time.Duration
			if strings.HasPrefix(f, "_time") {
				start := strings.IndexByte(f, '(')
				end := strings.LastIndexByte(f, ')')
				if start != -1 && start+1 < end {
					if tRaw, err := time.ParseDuration(f[start+1 : end]); err != nil {
						return nil, fmt.Errorf("csv fields: invalid _time format, err: %w", err)
					} else {
						trunc = tRaw
					}
				}
				if start != -1 {
					f = f[0:start]
				}
			}
			tmpFields = append(tmpFields, field{
				name:     f,
				truncate: trunc,
			})
			tmpNames = append(tmpNames, f)
		}
		if len(tmpNames) == 0 {
			continue
		}

		hashBytes := md5.Sum([]byte(strings.Join(tmpNames, ",")))
		hash := hex.EncodeToString(hashBytes[:])

		tmp := csvPGNFields{
			PGN:      uint32(pgn),
			fileName: fmt.Sprintf("%v_%v.csv", pgn, hash),
			names:    tmpNames,
			fields:   tmpFields,
		}
		result = append(result, tmp)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}
