package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"InkBoard/internal/document"
	"InkBoard/internal/export"
	"InkBoard/internal/state"
	"InkBoard/internal/store"
	"InkBoard/internal/surface"
)

// LiveScale is the bitmap resolution of the on-screen page, in pixels per
// page unit.
const LiveScale = 2.0

const closeFlushTimeout = 5 * time.Second

// Session is everything the window needs for one open document.
type Session struct {
	Machine  *state.Machine
	Document *document.Document
	// ID and Store locate the saved copy of the document.
	ID       string
	Store    store.Store
	Loader   *document.Loader
	Exporter *export.Exporter
	// Autosave may be nil for a board that is not backed by a store.
	Autosave *store.Autosaver
	Board    surface.Options
}

func RunApp(s Session) {
	myApp := app.NewWithID("io.inkboard")
	myWindow := myApp.NewWindow("InkBoard - " + s.Document.Name)
	myWindow.Resize(fyne.NewSize(1024, 768))

	opts := s.Board
	opts.Scheduler = surface.NewTimerScheduler(fyne.Do)
	board := surface.NewBoard(s.Machine, opts)
	bw := NewBoardWidget(s.Machine, board)

	board.OnTextRequest = func(x, y float64) {
		showTextDialog(myWindow, s.Machine)
	}

	loadPage := func(page int) {
		size, err := s.Document.PageSize(page)
		if err != nil {
			bw.SetStatus(err.Error())
			return
		}
		bw.SetPageSize(state.Size{W: size.W, H: size.H})
		go func() {
			img, err := s.Loader.Load(context.Background(), page, LiveScale)
			if errors.Is(err, document.ErrSuperseded) {
				return
			}
			if err != nil {
				log.Printf("[BOARD] Page %d failed to render: %v", page+1, err)
				bw.SetStatus(fmt.Sprintf("Page %d failed to render: %v", page+1, err))
				return
			}
			fyne.Do(func() { board.SetBackground(page, img, LiveScale) })
		}()
	}
	s.Machine.Subscribe(func(prev, next state.State) {
		if prev.CurrentPage != next.CurrentPage {
			loadPage(next.CurrentPage)
		}
	})
	loadPage(s.Machine.State().CurrentPage)

	if s.Autosave != nil {
		s.Autosave.OnSaved = func(id string) {
			bw.SetStatus("Saved")
		}
		s.Autosave.OnError = func(id string, err error) {
			bw.SetStatus(fmt.Sprintf("Save failed: %v", err))
		}
	}

	myWindow.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Revert to Saved", func() { revert(myWindow, s, bw) }),
			fyne.NewMenuItem("Export PDF...", func() { showExportDialog(myWindow, s, bw) }),
		),
	))

	// Create the toolbar and pass it a reference to the board
	toolbar := NewToolbar(s.Machine, bw)

	// Set up the main layout
	content := container.NewBorder(toolbar, bw.StatusBar(), nil, nil, bw)

	myWindow.SetCloseIntercept(func() {
		if s.Autosave != nil {
			ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
			if err := s.Autosave.Close(ctx); err != nil {
				log.Printf("[STORE] Final save failed: %v", err)
			}
			cancel()
		}
		myWindow.Close()
	})

	myWindow.SetContent(content)
	myWindow.ShowAndRun()
}

// showTextDialog asks for the content of the text annotation requested at
// the pending position. Empty input is dropped by the session.
func showTextDialog(win fyne.Window, m *state.Machine) {
	entry := widget.NewMultiLineEntry()
	entry.SetPlaceHolder("Text")
	entry.SetMinRowsVisible(3)

	dialog.ShowCustomConfirm("Add text", "Add", "Cancel", entry, func(ok bool) {
		if ok {
			m.Dispatch(state.SubmitText{Content: entry.Text})
			return
		}
		m.Dispatch(state.CancelText{})
	}, win)
	win.Canvas().Focus(entry)
}

// revert replaces the annotations with the stored copy. The undo history
// is kept; only the annotation set changes.
func revert(win fyne.Window, s Session, bw *BoardWidget) {
	if s.Store == nil {
		return
	}
	dialog.ShowConfirm("Revert to saved", "Discard annotations made since the last save?", func(ok bool) {
		if !ok {
			return
		}
		go func() {
			// a save still pending is replaced by the restored set once it
			// is dispatched
			rec, err := s.Store.Fetch(context.Background(), s.ID)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, win)
					return
				}
				s.Machine.Dispatch(state.RestoreAll{Pages: rec.Annotations})
				bw.SetStatus("Reverted to saved")
			})
		}()
	}, win)
}

func showExportDialog(win fyne.Window, s Session, bw *BoardWidget) {
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if w == nil {
			return
		}

		bar := widget.NewProgressBar()
		progress := dialog.NewCustomWithoutButtons("Exporting", bar, win)
		progress.Show()

		ex := *s.Exporter
		ex.Progress = func(done, total int) {
			fyne.Do(func() { bar.SetValue(float64(done) / float64(total)) })
		}
		pages := s.Machine.State().Pages

		go func() {
			err := ex.Export(context.Background(), s.Document, pages, w)
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			fyne.Do(func() {
				progress.Hide()
				if err != nil {
					log.Printf("[EXPORT] Failed: %v", err)
					dialog.ShowError(err, win)
					return
				}
				bw.SetStatus("Exported " + w.URI().Name())
			})
		}()
	}, win)
	save.SetFileName(export.DefaultFilename)
	save.Show()
}
