package yeelight

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerrad567/homedash/internal/device"
)

const searchRequest = "M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1982\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"ST: wifi_bulb\r\n"

// announcedProps are copied from discovery headers into device.Properties.
var announcedProps = []string{"id", "model", "power", "bright", "ct", "rgb", "color_mode", "name"}

// discover sends one M-SEARCH and collects replies until timeout.
func discover(ctx context.Context, cfg Config, timeout time.Duration, logger Logger) ([]device.Announcement, error) {
	group, err := net.ResolveUDPAddr("udp4", cfg.DiscoveryAddr)
	if err != nil {
		return nil, fmt.Errorf("yeelight: resolving %s: %w", cfg.DiscoveryAddr, err)
	}

	pc, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("yeelight: opening discovery socket: %w", err)
	}
	defer pc.Close()

	if err := pc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("yeelight: setting discovery deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = pc.SetReadDeadline(time.Now()) //nolint:errcheck // best effort wake-up
	})
	defer stop()

	if _, err := pc.WriteToUDP([]byte(searchRequest), group); err != nil {
		return nil, fmt.Errorf("yeelight: sending search request: %w", err)
	}

	var (
		found []device.Announcement
		seen  = make(map[string]bool)
		buf   = make([]byte, 4096)
	)
	for {
		n, from, err := pc.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return found, fmt.Errorf("yeelight: reading discovery replies: %w", err)
		}

		ann, err := parseAnnouncement(buf[:n], cfg.Port)
		if err != nil {
			logger.Debug("ignoring discovery reply", "from", from.String(), "error", err)
			continue
		}
		if seen[ann.Addr] {
			continue
		}
		seen[ann.Addr] = true
		found = append(found, ann)
	}

	if err := ctx.Err(); err != nil {
		return found, err
	}
	return found, nil
}

// parseAnnouncement decodes one discovery reply:
//
//	HTTP/1.1 200 OK
//	Location: yeelight://192.168.1.239:55443
//	id: 0x000000000015243f
//	model: color
//	power: on
//	...
func parseAnnouncement(b []byte, defaultPort int) (device.Announcement, error) {
	// Bulbs omit the blank line that terminates the header block.
	b = bytes.TrimRight(b, "\r\n")
	b = append(b[:len(b):len(b)], "\r\n\r\n"...)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), nil)
	if err != nil {
		return device.Announcement{}, fmt.Errorf("%w: %w", ErrInvalidAnnouncement, err)
	}
	defer resp.Body.Close()

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || loc.Scheme != "yeelight" || loc.Hostname() == "" {
		return device.Announcement{}, fmt.Errorf("%w: location %q", ErrInvalidAnnouncement, resp.Header.Get("Location"))
	}

	port := defaultPort
	if p := loc.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return device.Announcement{}, fmt.Errorf("%w: port %q", ErrInvalidAnnouncement, p)
		}
	}

	raw := make(map[string]string, len(announcedProps))
	for _, key := range announcedProps {
		raw[key] = resp.Header.Get(key)
	}

	return device.Announcement{
		Addr:       net.JoinHostPort(loc.Hostname(), strconv.Itoa(port)),
		Properties: normalizeProps(raw),
	}, nil
}
