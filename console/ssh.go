package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"dev.hon.one/argon/common"
	"dev.hon.one/argon/util"
)

// SSHAddressCommand - Lists interfaces with state and addresses, one per line.
const SSHAddressCommand = "ip --brief address"

// Interfaces which are up or have no carrier state (e.g. PPP) with addresses.
var sshInterfaceRegex = regexp.MustCompile(`^([^ ]+) +(?:UP|UNKNOWN) +(.+)$`)

// SSHConsole - Session with a CLI router (VyOS or plain Linux) over SSH.
type SSHConsole struct {
	address       string
	config        ssh.ClientConfig
	rebootCommand string
	timeout       time.Duration
	client        *ssh.Client
}

// NewSSHConsole - Create a logged out SSH console for the device. The private key is read immediately.
func NewSSHConsole(device common.Device, timeout time.Duration) (*SSHConsole, error) {
	deviceURL, err := url.Parse(strings.TrimSpace(device.Address))
	if err != nil {
		return nil, fmt.Errorf("malformed device address: %w", err)
	}
	if deviceURL.Scheme != "ssh" || deviceURL.Hostname() == "" {
		return nil, fmt.Errorf("device address must be an SSH URL: %v", device.Address)
	}
	port := deviceURL.Port()
	if port == "" {
		port = "22"
	}

	// Setup SSH config
	credential := device.Credential
	authMethods := make([]ssh.AuthMethod, 0)
	if credential.Password != "" {
		authMethods = append(authMethods, ssh.Password(credential.Password))
	}
	if credential.PrivateKeyPath != "" {
		privkey, err := ioutil.ReadFile(credential.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(privkey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	return &SSHConsole{
		address: net.JoinHostPort(deviceURL.Hostname(), port),
		config: ssh.ClientConfig{
			User:            credential.Username,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Auth:            authMethods,
			Timeout:         timeout,
		},
		rebootCommand: device.RebootCommand,
		timeout:       timeout,
	}, nil
}

// State - Current authentication state.
func (console *SSHConsole) State() SessionState {
	if console.client == nil {
		return LoggedOut
	}
	return LoggedIn
}

// Login - Open the SSH connection.
func (console *SSHConsole) Login(ctx context.Context) error {
	console.closeClient()

	dialer := net.Dialer{Timeout: console.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", console.address)
	if err != nil {
		return fmt.Errorf("failed to connect to %v: %w", console.address, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	clientConn, channels, requests, err := ssh.NewClientConn(conn, console.address, &console.config)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
		return fmt.Errorf("SSH handshake with %v failed: %w", console.address, err)
	}
	conn.SetDeadline(time.Time{})

	console.client = ssh.NewClient(clientConn, channels, requests)
	return nil
}

// Logout - Close the SSH connection.
func (console *SSHConsole) Logout(ctx context.Context) error {
	if console.client == nil {
		util.Tagged(util.TagLogout).Info("Already logged out")
		return nil
	}
	return console.closeClient()
}

// ReadStatus - Get the first IPv4 address of the interface named by the WAN label.
// A missing or down interface, or one without an IPv4 address, is not an error.
func (console *SSHConsole) ReadStatus(ctx context.Context, wanLabel string) (string, bool, error) {
	lines, err := console.runCommand(ctx, SSHAddressCommand)
	if err != nil {
		return "", false, err
	}
	address, found := FindAddress(parseBriefAddresses(lines), wanLabel)
	return address, found, nil
}

// Reboot - Run the reboot command. The connection dropping while it runs counts as success.
func (console *SSHConsole) Reboot(ctx context.Context) error {
	if console.client == nil {
		return ErrNotLoggedIn
	}
	defer console.closeClient()

	_, err := console.runCommand(ctx, console.rebootCommand)
	var exitMissingError *ssh.ExitMissingError
	if err != nil && !errors.As(err, &exitMissingError) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reboot command failed: %w", err)
	}
	return nil
}

// Close - Close the connection if open.
func (console *SSHConsole) Close() error {
	return console.closeClient()
}

func (console *SSHConsole) closeClient() error {
	if console.client == nil {
		return nil
	}
	err := console.client.Close()
	console.client = nil
	return err
}

// Run a single command in a new session, closing the session if the context ends first.
func (console *SSHConsole) runCommand(ctx context.Context, command string) ([]string, error) {
	if console.client == nil {
		return nil, ErrNotLoggedIn
	}
	session, err := console.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	err = session.Run(command)
	if stderr.Len() > 0 {
		log.WithFields(log.Fields{
			"device":  console.address,
			"command": command,
		}).Tracef("Received on STDERR: %v", strings.TrimSpace(stderr.String()))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}

	return strings.Split(strings.Replace(stdout.String(), "\r", "", -1), "\n"), nil
}

// One row per interface with its first usable IPv4 address, or the sentinel if it has none.
func parseBriefAddresses(lines []string) []StatusRow {
	var rows []StatusRow
	for _, line := range lines {
		result := sshInterfaceRegex.FindStringSubmatch(strings.TrimSpace(line))
		if result == nil {
			continue
		}
		// Names of stacked interfaces look like "eth0.200@eth0"
		label := result[1]
		if index := strings.Index(label, "@"); index > 0 {
			label = label[:index]
		}
		rows = append(rows, StatusRow{
			Label:   label,
			Address: firstIPv4Address(strings.Fields(result[2])),
		})
	}
	return rows
}

func firstIPv4Address(fields []string) string {
	for i := 0; i < len(fields); i++ {
		// Point-to-point links list the remote end after "peer"
		if fields[i] == "peer" {
			i++
			continue
		}
		rawAddress := fields[i]
		if index := strings.Index(rawAddress, "/"); index >= 0 {
			rawAddress = rawAddress[:index]
		}
		ipAddress := net.ParseIP(rawAddress)
		if ipAddress == nil || ipAddress.To4() == nil {
			continue
		}
		// Skip localhost and link-local
		if ipAddress.IsLoopback() || ipAddress.IsLinkLocalUnicast() {
			continue
		}
		return ipAddress.String()
	}
	return NoAddressSentinel
}
