package domain

import "github.com/shopspring/decimal"

// Product is a sellable catalog entry and its recipe
type Product struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Recipe []RecipeLine `json:"recipe"`
}

// Recipe maps one product to the supply items it consumes per unit sold
type Recipe struct {
	ProductID   string       `json:"productId"`
	ProductName string       `json:"productName"`
	Lines       []RecipeLine `json:"lines"`
}

// RecipeLine is one ingredient of a recipe
type RecipeLine struct {
	SupplyItemID    string          `json:"supplyItemId"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
	Unit            string          `json:"unit"`
}

// RecipeOf returns the product's recipe
func (p Product) RecipeOf() Recipe {
	return Recipe{
		ProductID:   p.ID,
		ProductName: p.Name,
		Lines:       p.Recipe,
	}
}
