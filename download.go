// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DownloadResponse fetches the private content of this file with bearer
// authentication and returns the raw response. The caller owns the body.
func (f *SlackFile) DownloadResponse() (*http.Response, error) {
	if len(f.downloadURL) == 0 {
		return nil, errors.Errorf("file %s has no private download url", f.ID)
	}

	req, err := getReq(f.downloadURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build download request for file %s", f.ID)
	}

	req.Header.Set("Authorization", "Bearer "+f.slack.token)

	resp, err := f.slack.client.c.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download file %s", f.ID)
	}

	return resp, nil
}

// DownloadStream returns the content of this file as a stream. The caller
// closes it.
func (f *SlackFile) DownloadStream() (io.ReadCloser, error) {
	resp, err := f.DownloadResponse()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.Errorf("unexpected HTTP response status downloading file %s: %s", f.ID, resp.Status)
	}

	return resp.Body, nil
}

// DownloadContent returns the content of this file as a byte slice.
func (f *SlackFile) DownloadContent() ([]byte, error) {
	stream, err := f.DownloadStream()
	if err != nil {
		return nil, err
	}

	defer func() { _ = stream.Close() }()

	content, err := io.ReadAll(stream)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read content of file %s", f.ID)
	}

	return content, nil
}

// DownloadTo saves this file under its own name into the given directory,
// returning the stored path.
func (f *SlackFile) DownloadTo(directory string) (string, error) {
	return f.Download(filepath.Join(directory, f.Name))
}

// Download saves this file under the given path, defaulting to the file name,
// and returns the stored path.
func (f *SlackFile) Download(name string) (string, error) {
	if len(name) == 0 {
		name = f.Name
	}

	stream, err := f.DownloadStream()
	if err != nil {
		return "", err
	}

	defer func() { _ = stream.Close() }()

	out, err := os.Create(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %q", name)
	}

	if _, err := io.Copy(out, stream); err != nil {
		_ = out.Close()
		return "", errors.Wrapf(err, "failed to write %q", name)
	}

	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close %q", name)
	}

	return name, nil
}
