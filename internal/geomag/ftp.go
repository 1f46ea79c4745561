package geomag

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
)

// DefaultFTPAddr is the GFZ Potsdam archive server.
const DefaultFTPAddr = "ftp.gfz-potsdam.de:21"

// FetchArchive downloads a file from the GFZ FTP archive to destPath via
// anonymous login. Used to refresh local Kp/ap files before a run.
func FetchArchive(addr, remotePath, destPath string) error {
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return fmt.Errorf("anonymous login: %w", err)
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", remotePath, err)
	}
	defer resp.Close()

	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return err
	}
	log.Printf("geomag: fetched %s (%d bytes) to %s", remotePath, n, destPath)
	return nil
}
