package sales

import (
	"context"
	"math"
	"sort"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
)

// Aggregator derives the sales dashboard from paid, non-deleted orders.
// It is strictly read-only.
type Aggregator struct {
	orders   store.OrderStore
	products store.ProductStore
	users    store.UserStore
}

func NewAggregator(orders store.OrderStore, products store.ProductStore, users store.UserStore) *Aggregator {
	return &Aggregator{orders: orders, products: products, users: users}
}

type MonthlySales struct {
	Month     string  `json:"month"` // YYYY-MM
	Revenue   float64 `json:"revenue"`
	UnitsSold int     `json:"unitsSold"`
}

type BestSeller struct {
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl"`
	Model     string `json:"model"`
	UnitsSold int    `json:"unitsSold"`
}

type CategorySales struct {
	Category string  `json:"category"`
	Sales    float64 `json:"sales"`
}

type Report struct {
	TotalRevenue        float64         `json:"totalRevenue"`
	TotalUnitsSold      int             `json:"totalUnitsSold"`
	SalesByMonth        []MonthlySales  `json:"salesByMonth"`
	TotalCustomer       int             `json:"totalCustomer"`
	AvailableStock      int             `json:"availableStock"`
	BestSellingProducts []BestSeller    `json:"bestSellingProducts"`
	SalesByCategory     []CategorySales `json:"salesByCategory"`
}

type productUnits struct {
	productID string
	units     int
	first     int // index of the first order that sold it, for stable ties
}

// Dashboard computes the report in one pass over paid orders. Currency
// values are rounded to two decimals only at the output boundary so
// intermediate sums do not compound rounding error.
func (a *Aggregator) Dashboard(ctx context.Context) (*Report, error) {
	paid, err := a.orders.ListPaid(ctx)
	if err != nil {
		return nil, err
	}

	var revenue float64
	var units int
	monthly := make(map[string]*MonthlySales)
	var monthKeys []string
	perProduct := make(map[string]*productUnits)
	categoryRevenue := make(map[string]float64)
	var productIDs []string

	for i, o := range paid {
		revenue += o.TotalPrice

		month := o.CreatedAt.Format("2006-01")
		m, ok := monthly[month]
		if !ok {
			m = &MonthlySales{Month: month}
			monthly[month] = m
			monthKeys = append(monthKeys, month)
		}
		m.Revenue += o.TotalPrice

		for _, it := range o.Items {
			units += it.Quantity
			m.UnitsSold += it.Quantity

			pu, ok := perProduct[it.ProductID]
			if !ok {
				pu = &productUnits{productID: it.ProductID, first: i}
				perProduct[it.ProductID] = pu
				productIDs = append(productIDs, it.ProductID)
			}
			pu.units += it.Quantity
		}
	}

	products, err := a.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	// Category revenue uses line totals since one order can span categories.
	for _, o := range paid {
		for _, it := range o.Items {
			p, ok := products[it.ProductID]
			if !ok {
				continue
			}
			categoryRevenue[p.Category] += it.Price * float64(it.Quantity)
		}
	}

	ranked := make([]*productUnits, 0, len(perProduct))
	for _, id := range productIDs {
		ranked = append(ranked, perProduct[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].units != ranked[j].units {
			return ranked[i].units > ranked[j].units
		}
		return ranked[i].first < ranked[j].first
	})

	best := make([]BestSeller, 0, 5)
	for _, pu := range ranked {
		if len(best) == 5 {
			break
		}
		p, ok := products[pu.productID]
		if !ok {
			continue
		}
		best = append(best, BestSeller{
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Model:     p.Model,
			UnitsSold: pu.units,
		})
	}

	sort.Strings(monthKeys)
	byMonth := make([]MonthlySales, 0, len(monthKeys))
	for _, k := range monthKeys {
		m := monthly[k]
		byMonth = append(byMonth, MonthlySales{
			Month:     m.Month,
			Revenue:   round2(m.Revenue),
			UnitsSold: m.UnitsSold,
		})
	}

	categories := make([]string, 0, len(categoryRevenue))
	for c := range categoryRevenue {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	byCategory := make([]CategorySales, 0, len(categories))
	for _, c := range categories {
		byCategory = append(byCategory, CategorySales{Category: c, Sales: round2(categoryRevenue[c])})
	}

	customers, err := a.users.CountByRole(ctx, user.RoleCustomer)
	if err != nil {
		return nil, err
	}
	stock, err := a.products.TotalStock(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		TotalRevenue:        round2(revenue),
		TotalUnitsSold:      units,
		SalesByMonth:        byMonth,
		TotalCustomer:       customers,
		AvailableStock:      stock,
		BestSellingProducts: best,
		SalesByCategory:     byCategory,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
