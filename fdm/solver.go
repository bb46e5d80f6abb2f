// Package fdm prices on a two-dimensional finite-difference grid for the G2++
// factors with the Douglas or the Hundsdorfer-Verwer ADI scheme. The mixed
// derivative is treated explicitly and each factor direction implicitly.
package fdm

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/grid"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

// Scheme names an ADI time stepping scheme.
type Scheme string

const (
	Douglas     Scheme = "douglas"
	Hundsdorfer Scheme = "hundsdorfer"
)

// Engine is the finite-difference swaption pricer. The zero Scheme is
// Douglas.
type Engine struct {
	TimeSteps    int
	XGrid        int
	YGrid        int
	DampingSteps int
	InvEps       float64
	Scheme       Scheme
	Theta        float64
}

func NewEngine(cfg config.FDMConfig) *Engine {
	return &Engine{
		TimeSteps:    cfg.TimeSteps,
		XGrid:        cfg.XGrid,
		YGrid:        cfg.YGrid,
		DampingSteps: cfg.DampingSteps,
		InvEps:       cfg.InvEps,
		Scheme:       Scheme(cfg.Scheme),
		Theta:        cfg.Theta,
	}
}

// Payoff is a claim value as a function of the factor state.
type Payoff func(x, y float64) float64

// Price values e, exercising optimally at each exercise time.
func (en *Engine) Price(m *model.G2, e *swaption.Exercise) (float64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("fdm: %w", err)
	}
	snap := m.Snapshot()
	exercise := make(map[float64]Payoff, len(e.Times))
	for k, t := range e.Times {
		exercise[t] = e.Payoff(snap, k)
	}
	return en.solve(snap, e.Times, func(x, y float64) float64 { return 0 }, exercise)
}

// ZeroBond prices the unit bond maturing at T.
func (en *Engine) ZeroBond(m *model.G2, T float64) (float64, error) {
	return en.solve(m.Snapshot(), []float64{T}, func(x, y float64) float64 { return 1 }, nil)
}

// solve rolls terminal back from the last mandatory time to 0.
func (en *Engine) solve(m *model.G2, mandatory []float64, terminal Payoff, exercise map[float64]Payoff) (float64, error) {
	if en.XGrid < 3 || en.YGrid < 3 || en.TimeSteps < 1 {
		return 0, &InstabilityError{Theta: en.Theta, Reason: fmt.Sprintf("degenerate grid %dx%d with %d time steps", en.XGrid, en.YGrid, en.TimeSteps)}
	}
	if en.InvEps <= 0 || en.InvEps >= 0.5 {
		return 0, &InstabilityError{Theta: en.Theta, Reason: fmt.Sprintf("invEps %g outside (0, 0.5)", en.InvEps)}
	}
	if en.Theta < 0 || en.Theta > 1 {
		return 0, &InstabilityError{Theta: en.Theta, Reason: "theta outside [0, 1]"}
	}
	switch en.Scheme {
	case "", Douglas, Hundsdorfer:
	default:
		return 0, &InstabilityError{Theta: en.Theta, Reason: fmt.Sprintf("unknown scheme %q", en.Scheme)}
	}
	g, err := grid.New(mandatory, en.TimeSteps)
	if err != nil {
		return 0, fmt.Errorf("fdm: %w", err)
	}
	p := m.Params()
	T := g.Last()
	mx := newMesher(en.XGrid, p.StdDevX(T), en.InvEps)
	my := newMesher(en.YGrid, p.StdDevY(T), en.InvEps)
	hx, hy := mx.minSpacing(), my.minSpacing()
	if !(hx > 0) || !(hy > 0) {
		return 0, &InstabilityError{Theta: en.Theta, Hx: hx, Hy: hy, Reason: "zero grid spacing"}
	}

	// Explicit parts of the scheme must satisfy their stability bound on the
	// finest spacing.
	maxDt := 0.0
	for i := 0; i < g.Len()-1; i++ {
		maxDt = math.Max(maxDt, g.Dt(i))
	}
	if en.Theta < 0.5 {
		ratio := maxDt*(1-2*en.Theta)*(p.Sigma*p.Sigma/(hx*hx)+p.Eta*p.Eta/(hy*hy)) +
			maxDt*math.Abs(p.Rho)*p.Sigma*p.Eta/(2*hx*hy)
		if ratio > 1 {
			return 0, &InstabilityError{Theta: en.Theta, Ratio: ratio, Dt: maxDt, Hx: hx, Hy: hy, Reason: "explicit ratio exceeds 1"}
		}
	}

	s := newState(mx, my)
	s.fill(func(x, y, _ float64) float64 { return terminal(x, y) })
	exerciseAt := func(t float64) {
		for te, pay := range exercise {
			if math.Abs(te-t) <= 1e-10 {
				s.fill(func(x, y, v float64) float64 { return math.Max(v, pay(x, y)) })
			}
		}
	}
	exerciseAt(T)

	n := g.Len() - 1
	for i := n - 1; i >= 0; i-- {
		t1, t2 := g.At(i), g.At(i+1)
		c := operators(m, mx, my, t1, t2, s.opX, s.opY)
		switch {
		case n-1-i < en.DampingSteps:
			s.douglasStep(t2-t1, 1, c.CovXY)
		case en.Scheme == Hundsdorfer:
			s.hundsdorferStep(t2-t1, en.Theta, c.CovXY)
		default:
			s.douglasStep(t2-t1, en.Theta, c.CovXY)
		}
		if i > 0 {
			exerciseAt(g.At(i))
		}
	}
	return s.interpolate(0, 0), nil
}

// state is the value surface on the mesh, x-major.
type state struct {
	mx, my *mesher
	u      []float64
	opX    *tridiag
	opY    *tridiag
}

func newState(mx, my *mesher) *state {
	return &state{
		mx:  mx,
		my:  my,
		u:   make([]float64, mx.size()*my.size()),
		opX: newTridiag(mx.size()),
		opY: newTridiag(my.size()),
	}
}

func (s *state) fill(f func(x, y, v float64) float64) {
	ny := s.my.size()
	for i, x := range s.mx.locs {
		for j, y := range s.my.locs {
			s.u[i*ny+j] = f(x, y, s.u[i*ny+j])
		}
	}
}

// explicit returns A0 v, A1 v and A2 v: the mixed term and the two factor
// directions.
func (s *state) explicit(v []float64, cov float64) (a0, a1, a2 []float64) {
	nx, ny := s.mx.size(), s.my.size()
	a0 = make([]float64, len(v))
	a1 = make([]float64, len(v))
	a2 = make([]float64, len(v))
	mixed(v, s.mx, s.my, cov, a0)
	parallel(ny, func(from, to int) {
		line := make([]float64, nx)
		for j := from; j < to; j++ {
			s.opX.apply(v, j, ny, nx, line)
			for i := 0; i < nx; i++ {
				a1[i*ny+j] = line[i]
			}
		}
	})
	parallel(nx, func(from, to int) {
		for i := from; i < to; i++ {
			s.opY.apply(v, i*ny, 1, ny, a2[i*ny:(i+1)*ny])
		}
	})
	return a0, a1, a2
}

// sweep runs the two implicit corrections of a stage into out:
//
//	(I - c A1) Y1 = y0 - c a1
//	(I - c A2) out = Y1 - c a2
func (s *state) sweep(y0, a1, a2 []float64, c float64, out []float64) {
	nx, ny := s.mx.size(), s.my.size()

	// x sweep, one line per y column.
	y1 := make([]float64, len(y0))
	parallel(ny, func(from, to int) {
		rhs, v, scratch := make([]float64, nx), make([]float64, nx), make([]float64, nx)
		for j := from; j < to; j++ {
			for i := 0; i < nx; i++ {
				rhs[i] = y0[i*ny+j] - c*a1[i*ny+j]
			}
			s.opX.solveImplicit(c, rhs, v, scratch)
			for i := 0; i < nx; i++ {
				y1[i*ny+j] = v[i]
			}
		}
	})

	// y sweep, one line per x row.
	parallel(nx, func(from, to int) {
		rhs, scratch := make([]float64, ny), make([]float64, ny)
		for i := from; i < to; i++ {
			row := i * ny
			for j := 0; j < ny; j++ {
				rhs[j] = y1[row+j] - c*a2[row+j]
			}
			s.opY.solveImplicit(c, rhs, out[row:row+ny], scratch)
		}
	})
}

// douglasStep advances the surface by dt backwards:
//
//	Y0 = u + dt (A0 + A1 + A2) u
//	Y2 = sweep(Y0, A1 u, A2 u)
func (s *state) douglasStep(dt, theta, cov float64) {
	u := s.u
	a0, a1, a2 := s.explicit(u, cov)
	y0 := make([]float64, len(u))
	for k := range y0 {
		y0[k] = u[k] + dt*(a0[k]+a1[k]+a2[k])
	}
	s.sweep(y0, a1, a2, theta*dt, u)
}

// hundsdorferStep is the Hundsdorfer-Verwer scheme: a Douglas predictor Y2,
// then a second stage that corrects the explicit mixed term with mu = 1/2.
//
//	Z0 = Y0 + mu dt (A(Y2) - A(u))
//	u' = sweep(Z0, A1 Y2, A2 Y2)
func (s *state) hundsdorferStep(dt, theta, cov float64) {
	const mu = 0.5
	u := s.u
	a0, a1, a2 := s.explicit(u, cov)
	y0 := make([]float64, len(u))
	for k := range y0 {
		y0[k] = u[k] + dt*(a0[k]+a1[k]+a2[k])
	}
	y2 := make([]float64, len(u))
	s.sweep(y0, a1, a2, theta*dt, y2)

	b0, b1, b2 := s.explicit(y2, cov)
	for k := range y0 {
		y0[k] += mu * dt * (b0[k] + b1[k] + b2[k] - a0[k] - a1[k] - a2[k])
	}
	s.sweep(y0, b1, b2, theta*dt, u)
}

// interpolate evaluates the surface bilinearly at (x, y).
func (s *state) interpolate(x, y float64) float64 {
	ny := s.my.size()
	i, wx := s.mx.bracket(x)
	j, wy := s.my.bracket(y)
	v00 := s.u[i*ny+j]
	v01 := s.u[i*ny+j+1]
	v10 := s.u[(i+1)*ny+j]
	v11 := s.u[(i+1)*ny+j+1]
	return (1-wx)*((1-wy)*v00+wy*v01) + wx*((1-wy)*v10+wy*v11)
}

// parallel splits [0, n) into blocks processed concurrently.
func parallel(n int, work func(from, to int)) {
	blocks := min(runtime.GOMAXPROCS(0), n)
	var g errgroup.Group
	for b := 0; b < blocks; b++ {
		from, to := b*n/blocks, (b+1)*n/blocks
		g.Go(func() error {
			work(from, to)
			return nil
		})
	}
	_ = g.Wait()
}
