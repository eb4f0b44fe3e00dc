package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Volume represents a mounted removable device.
type Volume struct {
	Label     string
	UUID      string
	MountPath string
	Device    string
}

// String returns a display string for the volume.
func (v Volume) String() string {
	s := v.MountPath
	if v.Label != "" {
		s = fmt.Sprintf("%s (%s)", v.Label, v.MountPath)
	}
	if v.UUID != "" {
		s += " [" + v.UUID + "]"
	}
	return s
}

// Matches reports whether name is the volume's label, UUID or mount path.
func (v Volume) Matches(name string) bool {
	return strings.EqualFold(v.Label, name) || strings.EqualFold(v.UUID, name) ||
		filepath.Clean(v.MountPath) == filepath.Clean(name)
}

// removableMediaPrefixes are paths where removable media is typically mounted.
var removableMediaPrefixes = []string{
	"/media/",
	"/mnt/",
	"/run/media/",
}

const mountsFile = "/proc/mounts"

// DetectVolumes scans for mounted removable media, sorted by mount path.
func DetectVolumes() ([]Volume, error) {
	f, err := os.Open(mountsFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", mountsFile, err)
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return nil, err
	}

	volumes := make([]Volume, 0, len(mounts))
	for dev, mountPath := range mounts {
		volumes = append(volumes, Volume{
			Label:     lookupDiskSymlink("/dev/disk/by-label", dev),
			UUID:      lookupDiskSymlink("/dev/disk/by-uuid", dev),
			MountPath: mountPath,
			Device:    dev,
		})
	}
	slices.SortFunc(volumes, func(a, b Volume) int { return strings.Compare(a.MountPath, b.MountPath) })
	return volumes, nil
}

// FindVolume returns the mounted volume named by label, UUID or mount path.
func FindVolume(name string) (Volume, error) {
	volumes, err := DetectVolumes()
	if err != nil {
		return Volume{}, err
	}
	for _, v := range volumes {
		if v.Matches(name) {
			return v, nil
		}
	}
	return Volume{}, fmt.Errorf("no mounted volume %q", name)
}

// parseMounts reads mount table lines and returns device->mountPath for
// removable media.
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		dev, path, ok := parseMountLine(scanner.Text())
		if ok {
			mounts[dev] = path
		}
	}
	return mounts, scanner.Err()
}

// parseMountLine parses a line from /proc/mounts.
// Returns device, mountPath, and whether this is a removable media mount.
func parseMountLine(line string) (device, mountPath string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}

	device = fields[0]
	mountPath = unescapeMountPath(fields[1])

	for _, prefix := range removableMediaPrefixes {
		if strings.HasPrefix(mountPath, prefix) {
			return device, mountPath, true
		}
	}
	return "", "", false
}

// unescapeMountPath handles octal escapes in mount paths (e.g., \040 for space).
func unescapeMountPath(s string) string {
	var result strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if oct := s[i+1 : i+4]; isOctal(oct) {
				var val byte
				for _, c := range oct {
					val = val*8 + byte(c-'0')
				}
				result.WriteByte(val)
				i += 3
				continue
			}
		}
		result.WriteByte(s[i])
	}
	return result.String()
}

func isOctal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '7' {
			return false
		}
	}
	return true
}

// lookupDiskSymlink finds the entry of dir (a /dev/disk/by-* directory)
// pointing at device.
func lookupDiskSymlink(dir, device string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	for _, entry := range entries {
		link := filepath.Join(dir, entry.Name())
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		resolved, err := filepath.EvalSymlinks(target)
		if err != nil {
			continue
		}
		if resolved == device {
			return entry.Name()
		}
	}
	return ""
}
