package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
)

const flipkartAmountColumn = "Final Invoice Amount (Price after discount+Shipping Charges)"

// flipkartReturnType maps an event sub type. ok is false for sub types that
// cancel an earlier return and must not be stored.
func flipkartReturnType(sub string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(sub)) {
	case "return cancellation":
		return "", false
	case "return":
		return "CUSTOMER_RETURN", true
	case "cancellation":
		return "RTO", true
	case "":
		return "RETURN", true
	default:
		return strings.ToUpper(strings.TrimSpace(sub)), true
	}
}

// Flipkart events: one sheet holding sale and return events keyed by order
// item id and dated by the buyer invoice date.
func (p *Parser) parseFlipkartEvents(t *Table, workspaceSlug string) (*Batch, error) {
	cols := newColumns(t)
	itemID := cols.require("order_item_id", "Order Item ID")
	fsn := cols.require("fsn", "FSN")
	sku := cols.require("sku", "SKU")
	invoiceDate := cols.require("buyer_invoice_date", "Buyer Invoice Date")
	eventType := cols.require("event_type", "Event Type")
	eventSub := cols.require("event_sub_type", "Event Sub Type")
	qtyCol := cols.require("item_quantity", "Item Quantity")
	amountCol := cols.require("final_invoice_amount", flipkartAmountColumn)
	reasonCol := cols.optional("return_reason", "Return Sub Reason", "Return Reason")
	brand := cols.optional("brand", "Brand")
	if err := cols.err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(workspaceSlug) == "" {
		workspaceSlug = "default"
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		id := t.Cell(row, itemID)
		date, ok := ParseDate(t.Cell(row, invoiceDate))
		if id == "" || !ok {
			b.Skipped++
			continue
		}

		qty := ParseInt(t.Cell(row, qtyCol))
		if qty < 0 {
			qty = 0
		}
		amount := decimal.Zero
		if f, ok := ParseFloat(t.Cell(row, amountCol)); ok && f > 0 {
			amount = decimal.NewFromFloat(f)
		}
		n := int(qty)
		if n <= 0 {
			n = 1
		}

		event := strings.ToLower(t.Cell(row, eventType))
		sub := t.Cell(row, eventSub)

		attrs := t.Record(row)
		attrs.Set(domain.AttrEventType, event)
		attrs.Set(domain.AttrReturnSubType, sub)
		attrs.Set(domain.AttrBrand, t.Cell(row, brand))
		if qty > 0 {
			attrs.Set(domain.AttrSellerPrice, amount.Div(decimal.NewFromInt(qty)).Round(2).String())
		}

		lineID := portal.FlipkartOrderLineID(workspaceSlug, id)
		styleKey := portal.NormalizeFlipkart(t.Cell(row, fsn))
		skuCode := portal.NormalizeFlipkart(t.Cell(row, sku))

		switch event {
		case "sale":
			b.Sales = append(b.Sales, domain.SalesRow{
				Portal:        portal.Flipkart,
				OrderLineID:   lineID,
				StyleKey:      styleKey,
				SellerSKUCode: skuCode,
				OrderDate:     date,
				Units:         n,
				Attributes:    attrs,
			})
		case "return":
			returnType, keep := flipkartReturnType(sub)
			if !keep {
				b.Skipped++
				continue
			}
			raw := reason.Clean(t.Cell(row, reasonCol))
			attrs.Set(domain.AttrReturnReason, raw)
			attrs.Set(domain.AttrCleanReason, p.reasons.Classify(raw, returnType, portal.Flipkart))

			b.Returns = append(b.Returns, domain.ReturnRow{
				Portal:        portal.Flipkart,
				OrderLineID:   lineID,
				StyleKey:      styleKey,
				SellerSKUCode: skuCode,
				ReturnDate:    date,
				ReturnType:    returnType,
				Units:         n,
				Attributes:    attrs,
			})
		default:
			b.Skipped++
		}
	}
	return b, nil
}

// Flipkart listing: catalog rows plus a stock snapshot summed per SKU.
func (p *Parser) parseFlipkartListing(t *Table) (*Batch, error) {
	cols := newColumns(t)
	fsn := cols.require("fsn", "Flipkart Serial Number", "FSN")
	sku := cols.require("sku", "Seller SKU Id", "SKU")
	stockCol := cols.optional("stock",
		"Current stock count for your product", "Your Stock Count", "System Stock count")
	title := cols.optional("product_title", "Product Title")
	brand := cols.optional("brand", "Brand")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	stock := make(map[string]int)
	var stockOrder []string
	for _, row := range t.Rows {
		rawFSN := t.Cell(row, fsn)
		if rawFSN == "" {
			b.Skipped++
			continue
		}
		styleKey := portal.NormalizeFlipkart(rawFSN)
		skuCode := ""
		if raw := t.Cell(row, sku); raw != "" {
			skuCode = portal.NormalizeFlipkart(raw)
		}

		b.Catalog = append(b.Catalog, domain.CatalogRow{
			Portal:        portal.Flipkart,
			StyleKey:      styleKey,
			SellerSKUCode: skuCode,
			Brand:         t.Cell(row, brand),
			ProductName:   t.Cell(row, title),
			Attributes:    t.Record(row),
		})

		if stockCol >= 0 && skuCode != "" {
			if _, seen := stock[skuCode]; !seen {
				stockOrder = append(stockOrder, skuCode)
			}
			qty := int(ParseInt(t.Cell(row, stockCol)))
			if qty < 0 {
				qty = 0
			}
			stock[skuCode] += qty
		}
	}
	b.Catalog = dedupeCatalog(b.Catalog)
	for _, code := range stockOrder {
		b.Stock = append(b.Stock, domain.StockRow{
			Portal:        portal.Flipkart,
			SellerSKUCode: code,
			Qty:           stock[code],
		})
	}
	return b, nil
}

// Flipkart search traffic: daily rows per SKU.
func (p *Parser) parseFlipkartTraffic(t *Table) (*Batch, error) {
	cols := newColumns(t)
	impDate := cols.require("impression_date", "Impression Date")
	sku := cols.require("sku_id", "SKU Id")
	views := cols.require("product_views", "Product Views")
	sales := cols.require("sales", "Sales")
	revenue := cols.require("revenue", "Revenue")
	listing := cols.optional("listing_id", "Listing Id")
	title := cols.optional("product_title", "Product Title")
	clicks := cols.optional("product_clicks", "Product Clicks")
	ctr := cols.optional("ctr", "Click Through Rate", "CTR (%)", "CTR")
	conv := cols.optional("conversion", "Conversion Rate", "Conversion Rate (%)", "Conversion (%)", "CVR")
	if err := cols.err(); err != nil {
		return nil, err
	}

	b := &Batch{Detected: cols.Detected()}
	for _, row := range t.Rows {
		date, ok := ParseDate(t.Cell(row, impDate))
		rawSKU := t.Cell(row, sku)
		if !ok || rawSKU == "" {
			b.Skipped++
			continue
		}
		rev, _ := ParseFloat(t.Cell(row, revenue))
		b.Traffic = append(b.Traffic, domain.TrafficRow{
			ImpressionDate: date,
			SellerSKUCode:  portal.NormalizeFlipkart(rawSKU),
			ListingID:      normalizeListingID(t.Cell(row, listing)),
			ProductTitle:   t.Cell(row, title),
			ProductViews:   ParseInt(t.Cell(row, views)),
			ProductClicks:  ParseInt(t.Cell(row, clicks)),
			SalesQty:       ParseInt(t.Cell(row, sales)),
			Revenue:        rev,
			CTRPct:         ParsePct(t.Cell(row, ctr)),
			ConversionPct:  ParsePct(t.Cell(row, conv)),
			Attributes:     t.Record(row),
		})
	}
	return b, nil
}

// normalizeListingID strips the LST prefix and keeps the first 16 characters,
// which is the id fragment Flipkart embeds in its FSN-derived keys.
func normalizeListingID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToUpper(s), "LST") {
		s = s[3:]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if len(s) > 16 {
		s = s[:16]
	}
	return portal.NormalizeFlipkart(s)
}
