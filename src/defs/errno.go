package defs

/// Err_t is a kernel error number. Kernel paths return it negated; zero
/// means success.
type Err_t int

const (
	EPERM   Err_t = 1
	ESRCH   Err_t = 3
	EINTR   Err_t = 4
	ECHILD  Err_t = 10
	EAGAIN  Err_t = 11
	ENOMEM  Err_t = 12
	EFAULT  Err_t = 14
	EBUSY   Err_t = 16
	EINVAL  Err_t = 22
	EDEADLK Err_t = 35
	ENOSYS  Err_t = 38
)

var errnames = map[Err_t]string{
	EPERM:   "EPERM",
	ESRCH:   "ESRCH",
	EINTR:   "EINTR",
	ECHILD:  "ECHILD",
	EAGAIN:  "EAGAIN",
	ENOMEM:  "ENOMEM",
	EFAULT:  "EFAULT",
	EBUSY:   "EBUSY",
	EINVAL:  "EINVAL",
	EDEADLK: "EDEADLK",
	ENOSYS:  "ENOSYS",
}

/// String returns the symbolic name of the error, with a leading minus
/// for the negated form used on kernel paths.
func (e Err_t) String() string {
	if e == 0 {
		return "OK"
	}
	sign := ""
	n := e
	if n < 0 {
		sign = "-"
		n = -n
	}
	if s, ok := errnames[n]; ok {
		return sign + s
	}
	return sign + "E?"
}
