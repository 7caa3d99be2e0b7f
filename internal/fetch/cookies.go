package fetch

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ParseCookieFile reads a Netscape-format cookies.txt stream. Blank lines and
// comments are skipped; short lines are ignored rather than rejected, since
// exported files routinely carry trailing junk.
func ParseCookieFile(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		expires, _ := strconv.ParseInt(fields[4], 10, 64)
		cookies = append(cookies, &http.Cookie{
			Domain:  fields[0],
			Path:    fields[2],
			Secure:  strings.EqualFold(fields[3], "TRUE"),
			Expires: time.Unix(expires, 0),
			Name:    fields[5],
			Value:   fields[6],
		})
	}
	return cookies, scanner.Err()
}

// LoadCookieJar builds a cookie jar from a Netscape cookies.txt file. The
// cookies are registered against their recorded domains over https.
func LoadCookieJar(path string) (http.CookieJar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cookies, err := ParseCookieFile(f)
	if err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", path, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	byDomain := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		byDomain[host] = append(byDomain[host], c)
	}
	for host, cs := range byDomain {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host}, cs)
	}
	return jar, nil
}
