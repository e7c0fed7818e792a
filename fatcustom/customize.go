package fatcustom

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"rpi-imager-diskwriter/helper"
	"rpi-imager-diskwriter/types"
)

const (
	fileConfigTxt      = "config.txt"
	fileCmdlineTxt     = "cmdline.txt"
	fileFirstrunSh     = "firstrun.sh"
	fileUserData       = "user-data"
	fileNetworkConfig  = "network-config"
	fileIssueTxt       = "issue.txt"
	systemdCmdlineTail = " systemd.run=/boot/firstrun.sh systemd.run_success_action=reboot systemd.unit=kernel-command-line.target"
)

// Customizer implements helper.Dispatcher's Customize method.
type Customizer struct {
	Opener FilesystemOpener
}

// NewCustomizer constructs a Customizer over the given filesystem opener.
func NewCustomizer(opener FilesystemOpener) *Customizer {
	return &Customizer{Opener: opener}
}

// Customize implements helper.Dispatcher's Customize method. Args are
// [drive, base64Config, base64Cmdline, base64Firstrun, base64Cloudinit,
// base64Network, initFormat].
func (c *Customizer) Customize(ctx context.Context, args []string, report helper.ProgressReporter) error {
	if len(args) != 7 {
		return fmt.Errorf("customize: expected 7 arguments, got %d", len(args))
	}
	drive := args[0]

	configBlob, err := decodeBlob("config", args[1])
	if err != nil {
		return err
	}
	cmdlineBlob, err := decodeBlob("cmdline", args[2])
	if err != nil {
		return err
	}
	firstrunBlob, err := decodeBlob("firstrun", args[3])
	if err != nil {
		return err
	}
	cloudinitBlob, err := decodeBlob("cloudinit", args[4])
	if err != nil {
		return err
	}
	networkBlob, err := decodeBlob("network", args[5])
	if err != nil {
		return err
	}
	initFormat := types.InitFormat(args[6])

	fs, err := c.Opener.Open(ctx, drive)
	if err != nil {
		return fmt.Errorf("customize: open %s as a FAT filesystem: %w", drive, err)
	}
	defer fs.Close()

	if err := patchConfigTxt(fs, configBlob); err != nil {
		return err
	}

	resolved, err := resolveInitFormat(fs, initFormat)
	if err != nil {
		return err
	}

	switch resolved {
	case types.InitFormatSystemd:
		if err := fs.WriteFile(fileFirstrunSh, firstrunBlob); err != nil {
			return fmt.Errorf("customize: write %s: %w", fileFirstrunSh, err)
		}
		if err := appendToFile(fs, fileCmdlineTxt, []byte(systemdCmdlineTail)); err != nil {
			return err
		}
	case types.InitFormatCloudInit:
		userData := append([]byte("#cloud-config\n"), cloudinitBlob...)
		if err := fs.WriteFile(fileUserData, userData); err != nil {
			return fmt.Errorf("customize: write %s: %w", fileUserData, err)
		}
		if err := fs.WriteFile(fileNetworkConfig, networkBlob); err != nil {
			return fmt.Errorf("customize: write %s: %w", fileNetworkConfig, err)
		}
	default:
		return fmt.Errorf("customize: unrecognized init format %q", initFormat)
	}

	if len(cmdlineBlob) > 0 {
		if err := appendToFile(fs, fileCmdlineTxt, cmdlineBlob); err != nil {
			return err
		}
	}

	if err := fs.Sync(); err != nil {
		return fmt.Errorf("customize: sync filesystem: %w", err)
	}
	return nil
}

func decodeBlob(name, encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("customize: malformed base64 %s blob: %w", name, err)
	}
	return data, nil
}

// resolveInitFormat implements spec.md §4.4's autodetection rule: prefer
// cloudinit when the caller pinned it or when user-data is already
// present on boot; otherwise systemd if issue.txt names pi-gen; else
// fall back to cloudinit.
func resolveInitFormat(fs Filesystem, requested types.InitFormat) (types.InitFormat, error) {
	if requested != types.InitFormatAuto {
		return requested, nil
	}

	hasUserData, err := fs.Exists(fileUserData)
	if err != nil {
		return "", fmt.Errorf("customize: check for %s: %w", fileUserData, err)
	}
	if hasUserData {
		return types.InitFormatCloudInit, nil
	}

	issue, ok, err := fs.ReadFile(fileIssueTxt)
	if err != nil {
		return "", fmt.Errorf("customize: read %s: %w", fileIssueTxt, err)
	}
	if ok && strings.Contains(string(issue), "pi-gen") {
		return types.InitFormatSystemd, nil
	}

	return types.InitFormatCloudInit, nil
}

// patchConfigTxt applies each newline-separated item in items to
// config.txt: uncomment a matching commented line if present, leave an
// already-present uncommented line alone, otherwise append it.
func patchConfigTxt(fs Filesystem, items []byte) error {
	if len(items) == 0 {
		return nil
	}

	existing, _, err := fs.ReadFile(fileConfigTxt)
	if err != nil {
		return fmt.Errorf("customize: read %s: %w", fileConfigTxt, err)
	}
	lines := splitLines(existing)

	for _, item := range splitLines(items) {
		if item == "" {
			continue
		}
		commented := "#" + item
		found := false
		for i, line := range lines {
			if line == commented {
				lines[i] = item
				found = true
				break
			}
			if line == item {
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, item)
		}
	}

	if err := fs.WriteFile(fileConfigTxt, joinLines(lines)); err != nil {
		return fmt.Errorf("customize: write %s: %w", fileConfigTxt, err)
	}
	return nil
}

// appendToFile appends suffix to an existing file's trimmed contents,
// used for cmdline.txt's single-line, space-joined format.
func appendToFile(fs Filesystem, name string, suffix []byte) error {
	existing, _, err := fs.ReadFile(name)
	if err != nil {
		return fmt.Errorf("customize: read %s: %w", name, err)
	}
	trimmed := strings.TrimRight(string(existing), "\r\n \t")
	updated := trimmed + string(suffix)
	if err := fs.WriteFile(name, []byte(updated)); err != nil {
		return fmt.Errorf("customize: write %s: %w", name, err)
	}
	return nil
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
