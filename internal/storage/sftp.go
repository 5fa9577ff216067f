// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package storage

import (
	"context"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig describes one remote reachable over SSH.
type SFTPConfig struct {
	Name           string
	Host           string
	Port           int
	User           string
	Password       string
	KeyFile        string
	KnownHostsFile string
	Timeout        time.Duration
}

// sftpClient is the subset of *sftp.Client used by the backend.
type sftpClient interface {
	Lstat(p string) (os.FileInfo, error)
	ReadDir(p string) ([]os.FileInfo, error)
	Remove(p string) error
	RemoveDirectory(p string) error
	Close() error
}

// SFTP is a Backend over an SFTP session.
type SFTP struct {
	kind     string
	client   sftpClient
	closer   func() error
	attempts uint
}

var _ Backend = (*SFTP)(nil)

// DialSFTP opens an SSH connection and an SFTP session for cfg.
func DialSFTP(cfg SFTPConfig) (*SFTP, error) {
	if cfg.Host == "" {
		return nil, errors.Errorf("sftp %s: host is required", cfg.Name)
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	auth, err := sftpAuthMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := sftpHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	sshClient, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "ssh dial %s", addr)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errors.Wrapf(err, "sftp session %s", addr)
	}

	s := newSFTP(cfg.Name, client)
	s.closer = func() error {
		err := client.Close()
		if sshErr := sshClient.Close(); sshErr != nil && err == nil {
			err = sshErr
		}
		return err
	}
	return s, nil
}

func newSFTP(kind string, client sftpClient) *SFTP {
	return &SFTP{
		kind:     kind,
		client:   client,
		closer:   client.Close,
		attempts: 3,
	}
}

func sftpAuthMethods(cfg SFTPConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "read key file %s", cfg.KeyFile)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse key file %s", cfg.KeyFile)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.Errorf("sftp %s: no auth method configured (set keyFile or password)", cfg.Name)
	}
	return methods, nil
}

func sftpHostKeyCallback(cfg SFTPConfig) (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsFile == "" {
		log.Warn().Str("remote", cfg.Name).Msg("storage: no knownHostsFile configured, host key will not be verified")
		//nolint:gosec // explicit opt-out when no known_hosts file is configured
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(cfg.KnownHostsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load known hosts %s", cfg.KnownHostsFile)
	}
	return cb, nil
}

func (s *SFTP) Exists(ctx context.Context, item Item) (bool, error) {
	var fi os.FileInfo
	err := s.retry(ctx, func() error {
		var err error
		fi, err = s.client.Lstat(item.Path)
		return err
	})
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "sftp stat %s", item.Path)
	}
	if item.Type == TypeDir {
		return fi.IsDir(), nil
	}
	return !fi.IsDir(), nil
}

func (s *SFTP) ListFiles(ctx context.Context, dir Item, recursive bool) ([]Item, error) {
	if dir.Type != TypeDir {
		return nil, ErrNotDirectory
	}

	var items []Item
	pending := []string{dir.Path}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := pending[0]
		pending = pending[1:]

		var infos []os.FileInfo
		err := s.retry(ctx, func() error {
			var err error
			infos, err = s.client.ReadDir(current)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "sftp readdir %s", current)
		}

		for _, info := range infos {
			child := path.Join(current, info.Name())
			if info.Mode()&fs.ModeSymlink != 0 {
				continue
			}
			if info.IsDir() {
				items = append(items, DirItem(s.kind, child))
				if recursive {
					pending = append(pending, child)
				}
				continue
			}
			items = append(items, FileItem(s.kind, child))
		}
	}
	return items, nil
}

func (s *SFTP) DeleteFile(ctx context.Context, item Item) (bool, error) {
	if path.Clean(item.Path) == "/" {
		return false, errors.Errorf("refusing to delete remote root on %s", s.kind)
	}

	remove := s.client.Remove
	if item.Type == TypeDir {
		remove = s.client.RemoveDirectory
	}

	err := s.retry(ctx, func() error { return remove(item.Path) })
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "sftp remove %s", item.Path)
	}
	return true, nil
}

// Close ends the SFTP session and the underlying SSH connection.
func (s *SFTP) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *SFTP) retry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !isNotExist(err) && !errors.Is(err, fs.ErrPermission)
		}),
	)
}

func isNotExist(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var status *sftp.StatusError
	if errors.As(err, &status) {
		return status.FxCode() == sftp.ErrSSHFxNoSuchFile
	}
	return false
}
