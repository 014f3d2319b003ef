package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/omeyang/xautometrics/pkg/observability/xmetrics"
	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

// catalogError 是演示目录服务的错误种类。
type catalogError int

const (
	errStorage catalogError = iota
	errNotFound
	errBadRequest
)

// 客户端造成的错误不计入错误预算。
var catalogErrorLabels = xmetrics.MustErrorLabels(map[catalogError]xmetrics.Status{
	errNotFound:   xmetrics.StatusOK,
	errBadRequest: xmetrics.StatusOK,
})

func (e catalogError) Error() string {
	switch e {
	case errNotFound:
		return "product not found"
	case errBadRequest:
		return "bad product id"
	default:
		return "storage unavailable"
	}
}

func (e catalogError) ResultLabel() xmetrics.Status { return catalogErrorLabels.Lookup(e) }

func (e catalogError) LabelValue() string {
	switch e {
	case errNotFound:
		return "not_found"
	case errBadRequest:
		return "bad_request"
	default:
		return "storage"
	}
}

func (e catalogError) httpStatus() int {
	switch e {
	case errNotFound:
		return http.StatusNotFound
	case errBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

type product struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// catalog 是 serve 命令暴露的演示服务，每个操作都是被观测函数。
type catalog struct {
	products  map[int]product
	failEvery uint64
	reads     atomic.Uint64

	load    *xmetrics.Func[product]
	inStock *xmetrics.ValueFunc[int]
	list    xmetrics.Site
	tracker xmetrics.Tracker
}

const demoModule = "xamctl.catalog"

// newCatalog 创建演示目录。failEvery > 0 时每 failEvery 次读取模拟一次存储故障。
func newCatalog(tracker xmetrics.Tracker, objective xslo.Objective, failEvery uint64) (*catalog, error) {
	opts := []xmetrics.SiteOption{xmetrics.WithModule(demoModule), xmetrics.WithConcurrencyTracking()}
	if !objective.IsZero() {
		opts = append(opts, xmetrics.WithObjective(objective))
	}
	loadSite, err := xmetrics.NewSite("loadProduct", opts...)
	if err != nil {
		return nil, err
	}
	stockSite, err := xmetrics.NewSite("countStock", xmetrics.WithModule(demoModule))
	if err != nil {
		return nil, err
	}
	listSite, err := xmetrics.NewSite("listProducts", opts...)
	if err != nil {
		return nil, err
	}
	inStock, err := xmetrics.NewValueFunc(tracker, stockSite, xmetrics.OkIf(func(n int) bool { return n > 0 }))
	if err != nil {
		return nil, err
	}
	return &catalog{
		products: map[int]product{
			1: {ID: 1, Name: "keyboard", Stock: 12},
			2: {ID: 2, Name: "mouse", Stock: 0},
			3: {ID: 3, Name: "monitor", Stock: 4},
		},
		failEvery: failEvery,
		load:      xmetrics.NewFunc[product](tracker, loadSite),
		inStock:   inStock,
		list:      listSite,
		tracker:   tracker,
	}, nil
}

func (c *catalog) read() error {
	n := c.reads.Add(1)
	if c.failEvery > 0 && n%c.failEvery == 0 {
		return errStorage
	}
	return nil
}

// product 读取单个商品，并记录库存检查。
func (c *catalog) product(ctx context.Context, id int) (product, error) {
	return c.load.Call(ctx, func(ctx context.Context) (product, error) {
		if id <= 0 {
			return product{}, errBadRequest
		}
		if err := c.read(); err != nil {
			return product{}, err
		}
		p, ok := c.products[id]
		if !ok {
			return product{}, errNotFound
		}
		c.inStock.Call(ctx, func(context.Context) int { return p.Stock })
		return p, nil
	})
}

// all 返回全部商品，按 ID 排序。
func (c *catalog) all(ctx context.Context) ([]product, error) {
	var out []product
	err := xmetrics.Run(ctx, c.tracker, c.list, func(ctx context.Context) error {
		ids := make([]int, 0, len(c.products))
		for id := range c.products {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			p, err := c.product(ctx, id)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func (c *catalog) handleList(w http.ResponseWriter, r *http.Request) {
	ps, err := c.all(r.Context())
	writeResult(w, ps, err)
}

func (c *catalog) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeResult(w, nil, errBadRequest)
		return
	}
	p, err := c.product(r.Context(), id)
	writeResult(w, p, err)
}

func writeResult(w http.ResponseWriter, v any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		var ce catalogError
		if errors.As(err, &ce) {
			status = ce.httpStatus()
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
