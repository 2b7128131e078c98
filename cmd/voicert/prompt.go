package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/codewandler/voicert-go/audio"
)

// promptSelector asks the user to pick an input device by number. An empty
// answer picks the system default.
func promptSelector(in *bufio.Reader, out io.Writer) audio.Selector {
	return func(devices []audio.DeviceInfo) (audio.DeviceInfo, error) {
		fmt.Fprintln(out, "Input devices:")
		for i, d := range devices {
			marker := ""
			if d.IsDefault {
				marker = " (default)"
			}
			fmt.Fprintf(out, "  [%d] %s%s\n", i, d.Name, marker)
		}

		for {
			fmt.Fprint(out, "Select device: ")
			line, err := in.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" && err == nil {
				return audio.SelectDefault(devices)
			}
			if line != "" {
				if i, perr := strconv.Atoi(line); perr == nil && i >= 0 && i < len(devices) {
					return devices[i], nil
				}
				fmt.Fprintf(out, "invalid choice %q\n", line)
			}
			if err != nil {
				return audio.DeviceInfo{}, fmt.Errorf("read selection: %w", err)
			}
		}
	}
}
