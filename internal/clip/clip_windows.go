//go:build windows

package clip

// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
// #include <stdlib.h>
//
// static HWND reclip_create_listener_window();
// static void reclip_pump_messages(HWND hwnd, int* changed);
//
// static LRESULT CALLBACK reclip_wnd_proc(HWND hwnd, UINT msg, WPARAM wp, LPARAM lp) {
//     if (msg == WM_CLIPBOARDUPDATE) {
//         PostMessage(hwnd, WM_USER + 1, 0, 0);
//         return 0;
//     }
//     return DefWindowProc(hwnd, msg, wp, lp);
// }
//
// static HWND reclip_create_listener_window() {
//     WNDCLASS wc = {0};
//     wc.lpfnWndProc   = reclip_wnd_proc;
//     wc.hInstance     = GetModuleHandle(NULL);
//     wc.lpszClassName = "ReclipClipboard";
//     RegisterClass(&wc);
//     HWND hwnd = CreateWindowEx(0, "ReclipClipboard", NULL, 0,
//         0, 0, 0, 0, HWND_MESSAGE, NULL, GetModuleHandle(NULL), NULL);
//     AddClipboardFormatListener(hwnd);
//     return hwnd;
// }
//
// static void reclip_destroy_listener_window(HWND hwnd) {
//     RemoveClipboardFormatListener(hwnd);
//     DestroyWindow(hwnd);
// }
//
// static void reclip_pump_messages(HWND hwnd, int* changed) {
//     MSG msg;
//     *changed = 0;
//     while (PeekMessage(&msg, hwnd, 0, 0, PM_REMOVE)) {
//         if (msg.message == WM_USER + 1) { *changed = 1; }
//         TranslateMessage(&msg);
//         DispatchMessage(&msg);
//     }
// }
//
// static unsigned long reclip_sequence() {
//     return (unsigned long)GetClipboardSequenceNumber();
// }
import "C"

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.design/x/clipboard"
)

const windowsPumpInterval = 20 * time.Millisecond

type windowsBackend struct {
	watchCh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New returns the Windows clipboard backend using AddClipboardFormatListener.
// One Ctrl+C often produces several WM_CLIPBOARDUPDATE messages; the detector
// filters those with its minimum gap.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	b := &windowsBackend{
		watchCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *windowsBackend) Name() string { return "Windows Clipboard" }

// pump owns the listener window. Window messages are delivered to the thread
// that created the window, so creation and pumping share one locked thread.
func (b *windowsBackend) pump() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hwnd := C.reclip_create_listener_window()
	defer C.reclip_destroy_listener_window(hwnd)

	t := time.NewTicker(windowsPumpInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			var changed C.int
			C.reclip_pump_messages(hwnd, &changed)
			if changed != 0 {
				notify(b.watchCh)
			}
		}
	}
}

func (b *windowsBackend) Read() (Snapshot, error) { return readFormats(), nil }

func (b *windowsBackend) WriteText(text string) error {
	writeText(text)
	return nil
}

func (b *windowsBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *windowsBackend) Sequence() uint64       { return uint64(C.reclip_sequence()) }
func (b *windowsBackend) Close()                 { b.closeOnce.Do(func() { close(b.done) }) }
