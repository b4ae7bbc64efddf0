package library

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// Usage is the space on the volume holding the library.
type Usage struct {
	Total uint64 `json:"total"`
	Free  uint64 `json:"free"`
	Used  uint64 `json:"used"`
}

// Stats reports disk usage for the library volume.
func (s *Store) Stats() (Usage, error) {
	u, err := disk.Usage(s.dir)
	if err != nil {
		return Usage{}, fmt.Errorf("disk usage: %w", err)
	}
	return Usage{Total: u.Total, Free: u.Free, Used: u.Used}, nil
}
