//go:build linux

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mirrors of the GPIO character device v2 structures
// (struct gpio_v2_* from <linux/gpio.h>). Layouts must match the kernel
// ABI byte for byte; the ioctls pass them through directly.

type gpioLineAttribute struct {
	ID      uint32
	Padding uint32
	Value   uint64 // union: flags, output values bitmap, or debounce period (us)
}

type gpioLineConfigAttribute struct {
	Attr gpioLineAttribute
	Mask uint64
}

type gpioLineConfig struct {
	Flags    uint64
	NumAttrs uint32
	Padding  [5]uint32
	Attrs    [GPIO_V2_LINE_NUM_ATTRS_MAX]gpioLineConfigAttribute
}

type gpioLineRequest struct {
	Offsets         [GPIO_V2_LINES_MAX]uint32
	Consumer        [GPIO_MAX_NAME_SIZE]byte
	Config          gpioLineConfig
	NumLines        uint32
	EventBufferSize uint32
	Padding         [5]uint32
	Fd              int32
}

type gpioLineValues struct {
	Bits uint64
	Mask uint64
}

type gpioLineEvent struct {
	TimestampNs uint64
	ID          uint32
	Offset      uint32
	Seqno       uint32
	LineSeqno   uint32
	Padding     [6]uint32
}

// gpioSource reads the three encoder lines through the GPIO character
// device, requesting both edges on every line and waiting with epoll.
//
// Each kernel edge event updates one line's last known level; the emitted
// sample carries the full level set.
type gpioSource struct {
	cfg    GPIOConfig
	logger *slog.Logger

	lineFd int
	levels [3]bool // indexed by request order: A, B, button

	events chan PinSample
	quit   chan struct{}
	done   chan struct{}
	wakeR  *os.File
	wakeW  *os.File
}

func newGPIOSource(cfg GPIOConfig, logger *slog.Logger) *gpioSource {
	if cfg.ChipPath == "" {
		cfg.ChipPath = defaultChipPath
	}
	if cfg.ButtonDebounce == 0 {
		cfg.ButtonDebounce = defaultButtonDebounce
	}
	return &gpioSource{cfg: cfg, logger: logger}
}

// Open requests the three lines and reads their current levels.
func (s *gpioSource) Open() (PinSample, error) {
	chip, err := os.OpenFile(s.cfg.ChipPath, os.O_RDWR, 0)
	if err != nil {
		return PinSample{}, fmt.Errorf("open gpio chip: %w", err)
	}
	defer chip.Close()

	var req gpioLineRequest
	req.Offsets[0] = s.cfg.PinA
	req.Offsets[1] = s.cfg.PinB
	req.Offsets[2] = s.cfg.PinButton
	req.NumLines = 3
	copy(req.Consumer[:], "encoderd")
	req.Config.Flags = GPIO_V2_LINE_FLAG_INPUT |
		GPIO_V2_LINE_FLAG_EDGE_RISING |
		GPIO_V2_LINE_FLAG_EDGE_FALLING |
		GPIO_V2_LINE_FLAG_BIAS_PULL_UP

	if s.cfg.ButtonDebounce > 0 {
		req.Config.NumAttrs = 1
		req.Config.Attrs[0] = gpioLineConfigAttribute{
			Attr: gpioLineAttribute{
				ID:    GPIO_V2_LINE_ATTR_ID_DEBOUNCE,
				Value: uint64(s.cfg.ButtonDebounce / time.Microsecond),
			},
			Mask: 1 << 2, // button line only
		}
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, chip.Fd(), uintptr(GPIO_V2_GET_LINE_IOCTL), uintptr(unsafe.Pointer(&req))); errno != 0 {
		return PinSample{}, fmt.Errorf("gpio line request (chip=%s lines=%d,%d,%d): %w",
			s.cfg.ChipPath, s.cfg.PinA, s.cfg.PinB, s.cfg.PinButton, errno)
	}
	s.lineFd = int(req.Fd)

	initial, err := s.readLevels()
	if err != nil {
		unix.Close(s.lineFd)
		return PinSample{}, err
	}

	s.wakeR, s.wakeW, err = os.Pipe()
	if err != nil {
		unix.Close(s.lineFd)
		return PinSample{}, fmt.Errorf("wake pipe: %w", err)
	}

	s.events = make(chan PinSample, 16)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.watch()

	return initial, nil
}

func (s *gpioSource) Events() <-chan PinSample {
	return s.events
}

// Close wakes the watch loop and waits for it to release the line.
func (s *gpioSource) Close() error {
	close(s.quit)
	s.wakeW.Close()
	<-s.done
	return nil
}

// readLevels fetches the current level of all three lines and updates the
// cached level set.
func (s *gpioSource) readLevels() (PinSample, error) {
	vals := gpioLineValues{Mask: 0b111}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(s.lineFd), uintptr(GPIO_V2_LINE_GET_VALUES_IOCTL), uintptr(unsafe.Pointer(&vals))); errno != 0 {
		return PinSample{}, fmt.Errorf("gpio get values: %w", errno)
	}
	for i := 0; i < 3; i++ {
		s.levels[i] = vals.Bits&(1<<i) != 0
	}
	return s.sample(), nil
}

// sample builds a PinSample from the cached levels. The button is wired
// active-low through the pull-up, so pressed means the line reads low.
func (s *gpioSource) sample() PinSample {
	return PinSample{
		LevelA:  s.levels[0],
		LevelB:  s.levels[1],
		Pressed: !s.levels[2],
	}
}

// watch waits for edge events with epoll and emits one sample per event.
func (s *gpioSource) watch() {
	defer close(s.done)
	defer close(s.events)
	defer s.wakeR.Close()
	defer unix.Close(s.lineFd)

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		s.logger.Error("epoll_create1", "err", err)
		return
	}
	defer unix.Close(epfd)

	wakeFd := int(s.wakeR.Fd())
	for _, fd := range []int{s.lineFd, wakeFd} {
		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			s.logger.Error("epoll_ctl_add", "fd", fd, "err", err)
			return
		}
	}

	evSize := binary.Size(gpioLineEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)
	epollEvents := make([]unix.EpollEvent, 4)

	for {
		n, err := unix.EpollWait(epfd, epollEvents, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			s.logger.Error("epoll_wait", "err", err)
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			if fd == wakeFd {
				// Close wrote the wake pipe; drain and exit.
				return
			}

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				s.logger.Error("gpio line error/hangup", "fd", fd)
				return
			}

			if _, err := unix.Read(s.lineFd, buf); err != nil {
				s.logger.Error("gpio line read", "err", err)
				return
			}

			reader.Reset(buf)
			var ev gpioLineEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				// Skip malformed events
				continue
			}

			level := ev.ID == GPIO_V2_LINE_EVENT_RISING_EDGE
			switch ev.Offset {
			case s.cfg.PinA:
				s.levels[0] = level
			case s.cfg.PinB:
				s.levels[1] = level
			case s.cfg.PinButton:
				s.levels[2] = level
			default:
				continue
			}

			select {
			case s.events <- s.sample():
			case <-s.quit:
				return
			}
		}
	}
}
