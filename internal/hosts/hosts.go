/*
PURPOSE:
  Builds the list of hosts to probe from the command line and/or a hosts file.

REQUIREMENTS:
  User-specified:
  - Accept a single address and/or a file with one address per line.
  - Remove duplicates, keeping the first occurrence.
  - Reject the run when no host remains.

  Implementation-discovered:
  - Hosts files carry blank lines and comments.
  - Entries may already include a port (host:port, [v6]:port).

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Feeds: internal/engine.Dispatcher

ERROR HANDLING:
  - ErrNoHosts is the only fatal condition of a run.
  - File read errors are returned wrapped.

IMPLEMENTATION RULES:
  - File entries come first, then explicit entries (historical order).
  - Never mutate the returned slice after the run starts.

USAGE:
  list, err := hosts.Collect(hostsFile, []string{ip})

RELATED FILES:
  - internal/cli/run.go
*/

package hosts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// ErrNoHosts is returned when neither a host nor a non-empty hosts file was given.
var ErrNoHosts = errors.New("no hosts to probe: provide --ip/--hosts or a non-empty --file")

// Read parses one host per line, skipping blanks and '#' comments.
func Read(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFile reads a hosts file.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts file %s: %w", path, err)
	}
	defer f.Close()

	list, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read hosts file %s: %w", path, err)
	}
	return list, nil
}

// Dedupe drops repeated entries, preserving first-seen order.
func Dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, h := range in {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Collect merges the hosts file (if any) with explicit entries and
// de-duplicates the result. It returns ErrNoHosts if nothing is left.
func Collect(file string, explicit []string) ([]string, error) {
	var all []string
	if file != "" {
		fromFile, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}
	for _, h := range explicit {
		if h = strings.TrimSpace(h); h != "" {
			all = append(all, h)
		}
	}

	all = Dedupe(all)
	if len(all) == 0 {
		return nil, ErrNoHosts
	}
	return all, nil
}

// BaseURL returns the http base URL for host, adding port unless host already has one.
func BaseURL(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return "http://" + host
	}
	h := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return "http://" + net.JoinHostPort(h, strconv.Itoa(port))
}
