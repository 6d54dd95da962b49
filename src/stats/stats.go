package stats

import "reflect"
import "strings"
import "sync/atomic"
import "time"
import "unsafe"

import "golang.org/x/text/language"
import "golang.org/x/text/message"

/// Stats enables the counters. Timing enables the cycle counters.
var Stats = true
var Timing = true

var boot = time.Now()

/// Rdtsc returns a monotonic timestamp in nanoseconds since boot when
/// timing is enabled.
func Rdtsc() uint64 {
	if Timing {
		return uint64(time.Since(boot))
	} else {
		return 0
	}
}

/// Counter_t is a statistical counter.
type Counter_t int64

/// Cycles_t holds elapsed time measured with Rdtsc.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

/// Get returns the counter's value.
func (c *Counter_t) Get() int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(c)))
}

/// Add adds the time elapsed since m to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Rdtsc()-m))
	}
}

/// Get returns the accumulated time.
func (c *Cycles_t) Get() int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(c)))
}

var printer = message.NewPrinter(language.English)

/// Stats2String converts a struct of counters to a printable string, one
/// counter per line with digit grouping.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	var s strings.Builder
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		name := v.Type().Field(i).Name
		t := f.Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			printer.Fprintf(&s, "\n\t#%s: %d", name, f.Int())
		}
		if strings.HasSuffix(t, "Cycles_t") {
			printer.Fprintf(&s, "\n\t#%s: %dns", name, f.Int())
		}
	}
	return s.String() + "\n"
}
