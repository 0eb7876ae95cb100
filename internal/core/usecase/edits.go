package usecase

import (
	"context"
	"fmt"

	"github.com/okulov/classify-console/internal/core/domain"
)

// Row edits mutate the authoritative array in place and immediately enqueue a
// full-array save. Edits apply locally no matter what the remote save does;
// only the cached copy goes stale on failure.

func (c *Controller) EditInputRow(index int, row domain.Product) error {
	return c.editRow(&c.inputRows, index, row)
}

func (c *Controller) DeleteInputRow(index int) error {
	return c.deleteRow(&c.inputRows, index)
}

func (c *Controller) EditOutputRow(index int, row domain.Product) error {
	return c.editRow(&c.outputRows, index, row)
}

func (c *Controller) DeleteOutputRow(index int) error {
	return c.deleteRow(&c.outputRows, index)
}

func (c *Controller) editRow(rows *[]domain.Product, index int, row domain.Product) error {
	c.mu.Lock()
	if index < 0 || index >= len(*rows) {
		c.mu.Unlock()
		return domain.WrapError(domain.ErrValidation, "edit row",
			fmt.Errorf("index %d out of range (%d rows)", index, len(*rows)))
	}
	(*rows)[index] = row
	snapshot := copyRows(*rows)
	c.mu.Unlock()

	c.sync.Enqueue(snapshot)
	return nil
}

func (c *Controller) deleteRow(rows *[]domain.Product, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(*rows) {
		c.mu.Unlock()
		return domain.WrapError(domain.ErrValidation, "delete row",
			fmt.Errorf("index %d out of range (%d rows)", index, len(*rows)))
	}
	*rows = append((*rows)[:index], (*rows)[index+1:]...)
	snapshot := copyRows(*rows)
	c.mu.Unlock()

	c.sync.Enqueue(snapshot)
	return nil
}

// ManualSave is the explicit keyboard-shortcut trigger; it reuses the exact
// save path of a normal edit, with the output rows when results exist.
func (c *Controller) ManualSave() {
	c.mu.Lock()
	rows := c.outputRows
	if len(rows) == 0 {
		rows = c.inputRows
	}
	snapshot := copyRows(rows)
	c.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	c.sync.Enqueue(snapshot)
}

// Teardown flushes unsaved output rows before the component goes away: one
// normal save when the synchronizer still has work queued, then a bounded
// wait for it to drain.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.Lock()
	rows := copyRows(c.outputRows)
	c.mu.Unlock()

	if len(rows) > 0 {
		c.sync.Enqueue(rows)
	}
	return c.sync.Flush(ctx)
}

// AbandonFast is the page-unload analogue: fire one best-effort save without
// waiting. Never blocks.
func (c *Controller) AbandonFast() {
	c.mu.Lock()
	rows := copyRows(c.outputRows)
	c.mu.Unlock()
	c.sync.BestEffortFlush(rows)
}
