package ingest

import (
	"time"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
)

// Myntra sales: one row per unit sold.
func (p *Parser) parseSales(t *Table) (*Batch, error) {
	cols := newColumns(t)
	olid := cols.require("order_line_id", "order line id")
	style := cols.require("style_id", "style id")
	created := cols.require("created_on", "created on")
	sku := cols.optional("seller_sku_code", "seller sku code")
	brand := cols.optional("brand", "brand")
	price := cols.optional("seller_price", "seller price", "sellerprice")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		id := orderLineID(t.Cell(row, olid))
		date, ok := ParseDate(t.Cell(row, created))
		if id == "" || !ok {
			b.Skipped++
			continue
		}

		attrs := t.Record(row)
		attrs.Set(domain.AttrBrand, t.Cell(row, brand))
		attrs.Set(domain.AttrSellerPrice, t.Cell(row, price))

		b.Sales = append(b.Sales, domain.SalesRow{
			Portal:        portal.Myntra,
			OrderLineID:   id,
			StyleKey:      portal.NormalizeMyntra(t.Cell(row, style)),
			SellerSKUCode: portal.NormalizeMyntra(t.Cell(row, sku)),
			OrderDate:     date,
			Units:         1,
			Attributes:    attrs,
		})
	}
	return b, nil
}

// Myntra returns: RTO rows are dated by the RTO date, customer returns by the
// return creation date.
func (p *Parser) parseReturns(t *Table) (*Batch, error) {
	cols := newColumns(t)
	olid := cols.require("order_line_id", "order_line_id")
	style := cols.require("style_id", "style_id")
	typ := cols.require("type", "type")
	qty := cols.require("quantity", "quantity")
	returnDate := cols.require("return_created_date", "return_created_date")
	rtoDate := cols.require("order_rto_date", "order_rto_date")
	sku := cols.optional("seller_sku_code", "seller_sku_code")
	reasonCol := cols.optional("return_reason", "return_reason")
	brand := cols.optional("brand", "brand")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		returnType := normalizeReturnType(t.Cell(row, typ))
		dateCol := returnDate
		if returnType == "RTO" {
			dateCol = rtoDate
		}
		date, ok := ParseDate(t.Cell(row, dateCol))
		id := orderLineID(t.Cell(row, olid))
		if id == "" || !ok {
			b.Skipped++
			continue
		}

		raw := reason.Clean(t.Cell(row, reasonCol))
		attrs := t.Record(row)
		attrs.Set(domain.AttrBrand, t.Cell(row, brand))
		attrs.Set(domain.AttrReturnReason, raw)
		attrs.Set(domain.AttrCleanReason, p.reasons.Classify(raw, returnType, portal.Myntra))

		b.Returns = append(b.Returns, domain.ReturnRow{
			Portal:        portal.Myntra,
			OrderLineID:   id,
			StyleKey:      portal.NormalizeMyntra(t.Cell(row, style)),
			SellerSKUCode: portal.NormalizeMyntra(t.Cell(row, sku)),
			ReturnDate:    date,
			ReturnType:    returnType,
			Units:         units(t.Cell(row, qty)),
			Attributes:    attrs,
		})
	}
	return b, nil
}

// Myntra listing. A bad catalogued date keeps the row with no live date.
func (p *Parser) parseCatalog(t *Table) (*Batch, error) {
	cols := newColumns(t)
	style := cols.require("style_id", "style id")
	live := cols.require("style_catalogued_date", "style catalogued date")
	brand := cols.require("brand", "brand")
	name := cols.require("style_name", "style name")
	sku := cols.require("seller_sku_code", "seller sku code")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		key := portal.NormalizeMyntra(t.Cell(row, style))
		if key == "" {
			b.Skipped++
			continue
		}
		var liveDate *time.Time
		if d, ok := ParseDate(t.Cell(row, live)); ok {
			liveDate = &d
		}
		b.Catalog = append(b.Catalog, domain.CatalogRow{
			Portal:              portal.Myntra,
			StyleKey:            key,
			SellerSKUCode:       portal.NormalizeMyntra(t.Cell(row, sku)),
			Brand:               t.Cell(row, brand),
			ProductName:         t.Cell(row, name),
			StyleCataloguedDate: liveDate,
			Attributes:          t.Record(row),
		})
	}
	b.Catalog = dedupeCatalog(b.Catalog)
	return b, nil
}

func (p *Parser) parseStock(t *Table) (*Batch, error) {
	cols := newColumns(t)
	sku := cols.require("seller_sku_code", "seller_sku_code")
	qty := cols.require("qty", "qty", "quantity")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		code := portal.NormalizeMyntra(t.Cell(row, sku))
		if code == "" {
			b.Skipped++
			continue
		}
		b.Stock = append(b.Stock, domain.StockRow{
			Portal:        portal.Infer(code),
			SellerSKUCode: code,
			Qty:           int(ParseInt(t.Cell(row, qty))),
		})
	}
	return b, nil
}

func (p *Parser) parseWeeklyPerf(t *Table) (*Batch, error) {
	cols := newColumns(t)
	style := cols.require("style_id", "style id")
	impressions := cols.require("impressions", "impressions")
	clicks := cols.require("clicks", "clicks")
	atc := cols.require("add_to_carts", "add to carts")
	purchases := cols.require("purchases", "purchases")
	seller := cols.optional("seller_id", "seller id")
	article := cols.optional("article_type", "article type")
	brand := cols.optional("brand", "brand")
	gender := cols.optional("gender", "gender")
	mrp := cols.optional("seller_mrp", "seller mrp")
	age := cols.optional("inventory_age", "inventory age")
	rplc := cols.optional("rplc", "rplc")
	retPct := cols.optional("return_pct", "return %", "return pct")
	consPct := cols.optional("consideration_pct", "consideration %", "consideration pct")
	convPct := cols.optional("conversion_pct", "conversion %", "conversion pct")
	rating := cols.optional("rating", "rating")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		key := portal.NormalizeMyntra(t.Cell(row, style))
		if key == "" {
			b.Skipped++
			continue
		}
		b.WeeklyPerf = append(b.WeeklyPerf, domain.WeeklyPerfRow{
			StyleKey:         key,
			SellerID:         optInt(t.Cell(row, seller)),
			ArticleType:      t.Cell(row, article),
			Brand:            t.Cell(row, brand),
			Gender:           t.Cell(row, gender),
			SellerMRP:        optFloat(t.Cell(row, mrp)),
			InventoryAge:     optInt(t.Cell(row, age)),
			RPLC:             optFloat(t.Cell(row, rplc)),
			Impressions:      ParseInt(t.Cell(row, impressions)),
			Clicks:           ParseInt(t.Cell(row, clicks)),
			AddToCarts:       ParseInt(t.Cell(row, atc)),
			Purchases:        ParseInt(t.Cell(row, purchases)),
			ReturnPct:        ParsePct(t.Cell(row, retPct)),
			ConsiderationPct: ParsePct(t.Cell(row, consPct)),
			ConversionPct:    ParsePct(t.Cell(row, convPct)),
			Rating:           optFloat(t.Cell(row, rating)),
			Attributes:       t.Record(row),
		})
	}
	return b, nil
}

// dedupeCatalog keeps the last row per (style, sku) so one upsert statement
// never touches the same row twice.
func dedupeCatalog(rows []domain.CatalogRow) []domain.CatalogRow {
	type key struct{ style, sku string }
	pos := make(map[key]int, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := key{r.StyleKey, r.SellerSKUCode}
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}
