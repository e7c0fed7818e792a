package cmd

import (
	"encoding/base64"
	"fmt"
	"strings"

	"rpi-imager-diskwriter/types"
)

// buildCustomizeArgs renders the CUSTOMIZE command's five base64 blobs
// from the flags a user actually supplied, the way OptionsPopup builds
// them client-side in the source program before ever talking to the
// helper: the helper only ever sees opaque bytes to drop onto the boot
// partition, never raw hostname/Wi-Fi credentials it has to template
// itself.
func buildCustomizeArgs(hostname, sshKey, wifiSSID, wifiPassword string, initFormat types.InitFormat) []string {
	var configLines []string
	if hostname != "" {
		configLines = append(configLines, "host_name="+hostname)
	}

	firstrun := renderFirstrunSh(hostname, sshKey, wifiSSID, wifiPassword)
	cloudinit := renderCloudInitUserData(hostname, sshKey)
	network := renderNetworkConfig(wifiSSID, wifiPassword)

	return []string{
		b64(strings.Join(configLines, "\n")),
		"",
		b64(firstrun),
		b64(cloudinit),
		b64(network),
		string(initFormat),
	}
}

func b64(s string) string {
	if s == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func renderFirstrunSh(hostname, sshKey, wifiSSID, wifiPassword string) string {
	if hostname == "" && sshKey == "" && wifiSSID == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("#!/bin/bash\nset -e\n")
	if hostname != "" {
		fmt.Fprintf(&b, "CURRENT_HOSTNAME=$(cat /etc/hostname | tr -d \" \\t\\n\\r\")\n")
		fmt.Fprintf(&b, "echo %q >/etc/hostname\n", hostname)
		fmt.Fprintf(&b, "sed -i \"s/127.0.1.1.*$CURRENT_HOSTNAME/127.0.1.1\\t%s/g\" /etc/hosts\n", hostname)
	}
	if sshKey != "" {
		b.WriteString("install -d -m 700 /home/pi/.ssh\n")
		fmt.Fprintf(&b, "echo %q >/home/pi/.ssh/authorized_keys\n", sshKey)
		b.WriteString("chown -R pi:pi /home/pi/.ssh\nchmod 600 /home/pi/.ssh/authorized_keys\ntouch /boot/ssh\n")
	}
	if wifiSSID != "" {
		fmt.Fprintf(&b, "cat >/etc/wpa_supplicant/wpa_supplicant.conf <<'WIFI'\ncountry=US\nctrl_interface=DIR=/var/run/wpa_supplicant GROUP=netdev\nupdate_config=1\nnetwork={\n\tssid=%q\n\tpsk=%q\n}\nWIFI\n", wifiSSID, wifiPassword)
	}
	b.WriteString("rm -f /boot/firstrun.sh\nexit 0\n")
	return b.String()
}

func renderCloudInitUserData(hostname, sshKey string) string {
	if hostname == "" && sshKey == "" {
		return ""
	}
	var b strings.Builder
	if hostname != "" {
		fmt.Fprintf(&b, "hostname: %s\n", hostname)
	}
	if sshKey != "" {
		b.WriteString("ssh_authorized_keys:\n")
		fmt.Fprintf(&b, "  - %s\n", sshKey)
	}
	return b.String()
}

func renderNetworkConfig(wifiSSID, wifiPassword string) string {
	if wifiSSID == "" {
		return ""
	}
	return fmt.Sprintf("version: 2\nwifis:\n  wlan0:\n    dhcp4: true\n    access-points:\n      %q:\n        password: %q\n", wifiSSID, wifiPassword)
}
