package terminal

import (
	"bufio"
	"context"
	"net"
	"os"
	"os/user"
	"runtime"
	"strings"
)

// SystemInfo describes the machine behind a terminal session.
type SystemInfo struct {
	OS     string
	Distro string
	User   string
	Shell  string
	IP     string
}

// SystemInfoProvider is implemented by accessors that know what host a
// session is attached to.
type SystemInfoProvider interface {
	SystemInfo(ctx context.Context, sessionID string) (SystemInfo, bool)
}

func (l *Local) SystemInfo(_ context.Context, sessionID string) (SystemInfo, bool) {
	if _, err := l.session(sessionID); err != nil {
		return SystemInfo{}, false
	}
	info := SystemInfo{
		OS:     runtime.GOOS,
		Distro: osRelease("/etc/os-release"),
		Shell:  l.shell(),
		IP:     primaryIP(),
	}
	if current, err := user.Current(); err == nil {
		info.User = current.Username
	}
	return info, true
}

func osRelease(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return "unknown"
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok && key == "PRETTY_NAME" {
			return strings.Trim(value, `"'`)
		}
	}
	return "unknown"
}

func primaryIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		return ipNet.IP.String()
	}
	return "unknown"
}
