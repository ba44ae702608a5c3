/*
Package queue runs background tasks on a fixed pool of workers.

Tasks are persisted in the tasks table before [Queue.Enqueue] returns.
Workers claim the oldest pending task with one atomic UPDATE, run the
handler registered for its kind to completion, and record the task as done
or failed. A handler that panics is recorded as failed; the worker survives.

Delivery is at least once. [Queue.Start] returns every task left in the
running state by a previous process to pending before any worker starts,
so a crash between claim and completion redelivers the task. Handlers must
therefore be safe to re-run.

Workers wake on enqueue and on a poll ticker. Before each claim they wait
out memory pressure reported by an optional memory.Monitor.

[Queue.Stop] stops claiming and waits for in-flight tasks; running handlers
are never cancelled. Done tasks older than the retention period are pruned
in the background. There is no ordering guarantee between tasks.
*/
package queue
