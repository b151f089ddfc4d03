package config

import (
	"fmt"
	"os"
)

func Template() string {
	return daemonTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(daemonTemplate), 0o600)
}

const daemonTemplate = `# keybridged daemon configuration

# Netlink protocol family shared with the kernel module.
netlink_protocol = 19

# Largest frame the receiver will buffer. Larger declared lengths are
# rejected as malformed.
max_frame_bytes = 65536

# Consecutive receive failures tolerated before the daemon exits fatally.
error_threshold = 10

store_path = "/var/lib/keybridge/keys.db"
lock_path = "/run/keybridge/keybridged.lock"
passphrase_file = "/etc/keybridge/passphrase"

# Prometheus scrape address; empty disables the listener.
metrics_addr = ""
`
