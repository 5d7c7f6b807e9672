package onnx

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

var (
	releaseURL = "https://github.com/microsoft/onnxruntime/releases/download/"
	target     = "onnxruntime"
	version    = "1.20.0"
	localPath  = os.Getenv("HOME") + `/.local/lib`
)

var initOnce sync.Once

// Init points the binding at the shared library and initializes the runtime
// environment once per process. An empty libPath falls back to the default
// install location.
func Init(libPath string) (err error) {
	initOnce.Do(func() {
		if libPath == "" {
			libPath = LibPath()
		}
		ort.SetSharedLibraryPath(libPath)
		if initErr := ort.InitializeEnvironment(); initErr != nil {
			err = fmt.Errorf("failed to init onnx runtime: %w", initErr)
		}
	})
	return err
}

// Shutdown tears down the runtime environment.
func Shutdown() error {
	return ort.DestroyEnvironment()
}

// LibPath returns the expected location of the onnxruntime shared library
// for this platform, or "" when the platform is unsupported.
func LibPath() string {
	dist, arch, err := determinePlatform()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/%s-%s-%s-%s/lib/lib%s.%s.%s",
		localPath, target, dist, arch, version, target, version, determineExtension(dist))
}

func releaseArchive() string {
	dist, arch, err := determinePlatform()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("v%s/%s-%s-%s-%s.tgz", version, target, dist, arch, version)
}

// EnsureRuntime downloads and unpacks the onnxruntime release when the shared
// library is not already installed.
func EnsureRuntime() error {
	if _, err := os.Stat(LibPath()); err == nil {
		return nil
	}
	if err := downloadRuntime(); err != nil {
		return fmt.Errorf("failed to download onnx runtime: %w", err)
	}
	return nil
}

func determinePlatform() (dist, arch string, err error) {
	switch runtime.GOOS {
	case "darwin":
		dist = "osx"
	case "linux":
		dist = "linux"
	default:
		return "", "", fmt.Errorf("OS '%s' is not supported", runtime.GOOS)
	}
	switch runtime.GOARCH {
	case "arm64":
		arch = "arm64"
	case "amd64":
		arch = "x64"
	default:
		return "", "", fmt.Errorf("architecture '%s' is not supported", runtime.GOARCH)
	}
	return dist, arch, nil
}

func determineExtension(dist string) string {
	switch dist {
	case "osx":
		return "dylib"
	case "linux":
		return "so"
	default:
		return ""
	}
}

func downloadRuntime() (err error) {
	if err = os.MkdirAll(localPath, 0755); err != nil {
		return err
	}
	var tgz = filepath.Join(localPath, version+".tgz")
	out, err := os.Create(tgz)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close(), os.Remove(tgz))
	}()
	resp, err := http.Get(releaseURL + releaseArchive())
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer func() {
		err = multierr.Append(err, resp.Body.Close())
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code %d", resp.StatusCode)
	}
	if _, err = io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return unpackArchive(tgz, localPath)
}

func unpackArchive(tgzPath, dst string) (err error) {
	file, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", tgzPath, err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to read gzip archive: %w", err)
	}
	defer func() {
		err = multierr.Append(err, gzReader.Close())
	}()
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar archive: %w", err)
		}
		targetPath := filepath.Join(dst, header.Name)
		if header.Typeflag == tar.TypeDir {
			if err = os.MkdirAll(targetPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err = writeArchiveFile(targetPath, tarReader); err != nil {
			return err
		}
	}
	return nil
}

func writeArchiveFile(path string, r io.Reader) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()
	if _, err = io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
