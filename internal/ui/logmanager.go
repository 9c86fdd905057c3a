package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/status"
)

// LogUIManager renders a status.Log in the status bar and lets the user page
// through older messages.
type LogUIManager struct {
	log *status.Log

	// UI elements it controls
	statusLogLabel   *widget.Label
	statusLogUpBtn   *widget.Button
	statusLogDownBtn *widget.Button
}

// NewLogUIManager binds the widgets to log. Changes to the log are redrawn on
// the UI goroutine.
func NewLogUIManager(log *status.Log, logLabel *widget.Label, upBtn, downBtn *widget.Button) *LogUIManager {
	lm := &LogUIManager{
		log:              log,
		statusLogLabel:   logLabel,
		statusLogUpBtn:   upBtn,
		statusLogDownBtn: downBtn,
	}
	upBtn.OnTapped = lm.ShowPreviousLogMessage
	downBtn.OnTapped = lm.ShowNextLogMessage
	log.OnChange(func() { fyne.Do(lm.UpdateLogDisplay) })
	lm.UpdateLogDisplay()
	return lm
}

// statusText formats the entry at pos (0-based) of total.
func statusText(e status.Entry, pos, total int) string {
	if total == 0 {
		return ""
	}
	text := fmt.Sprintf("[%d/%d] %s", pos+1, total, e.Message)
	if e.Level != status.Info {
		text = fmt.Sprintf("[%d/%d] %s: %s", pos+1, total, e.Level, e.Message)
	}
	return text
}

// UpdateLogDisplay redraws the label and the paging buttons.
func (lm *LogUIManager) UpdateLogDisplay() {
	e, pos, total := lm.log.Current()
	lm.statusLogLabel.SetText(statusText(e, pos, total))
	if total == 0 || pos <= 0 {
		lm.statusLogUpBtn.Disable()
	} else {
		lm.statusLogUpBtn.Enable()
	}
	if total == 0 || pos >= total-1 {
		lm.statusLogDownBtn.Disable()
	} else {
		lm.statusLogDownBtn.Enable()
	}
}

func (lm *LogUIManager) ShowPreviousLogMessage() {
	if lm.log.Previous() {
		lm.UpdateLogDisplay()
	}
}

func (lm *LogUIManager) ShowNextLogMessage() {
	if lm.log.Next() {
		lm.UpdateLogDisplay()
	}
}
