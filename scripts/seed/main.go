// Package main implements a standalone seed script that populates the
// Voltrico platform with realistic test data. All data flows through the
// public HTTP APIs of the catalog and order services so that the seeded
// entities also travel the outbox and Kafka pipeline into the search
// index, exactly as production writes would.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

func httpPost(url string, body any) (map[string]any, error) {
	return httpSend(http.MethodPost, url, body)
}

func httpPut(url string, body any) (map[string]any, error) {
	return httpSend(http.MethodPut, url, body)
}

func httpSend(method, url string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

// dataField extracts the "data" object from a service response envelope.
func dataField(result map[string]any) map[string]any {
	data, _ := result["data"].(map[string]any)
	return data
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type productDef struct {
	name         string
	brand        string
	model        string
	description  string
	category     string
	color        string
	price        float64
	energyRating string
	madeIn       string
	warranty     string
	features     []string
}

var products = []productDef{
	{
		name: "SteamPro Iron 2400", brand: "Veltex", model: "SP-2400",
		description: "Steam iron with ceramic soleplate and anti-drip system.",
		category:    "home-appliances", color: "blue", price: 49.90,
		energyRating: "A", madeIn: "Germany", warranty: "2 years",
		features: []string{"ceramic soleplate", "anti-drip", "vertical steam"},
	},
	{
		name: "FrostLine Fridge 320L", brand: "Koldex", model: "FL-320",
		description: "No-frost refrigerator with inverter compressor.",
		category:    "home-appliances", color: "silver", price: 799.00,
		energyRating: "A++", madeIn: "South Korea", warranty: "5 years",
		features: []string{"no-frost", "inverter", "fast cooling"},
	},
	{
		name: "AeroBlend Mixer 900W", brand: "Veltex", model: "AB-900",
		description: "High speed blender with six stainless steel blades.",
		category:    "kitchen", color: "black", price: 89.50,
		energyRating: "B", madeIn: "China", warranty: "1 year",
		features: []string{"six blades", "pulse mode", "dishwasher safe jar"},
	},
	{
		name: "CrispWave Microwave 25L", brand: "Koldex", model: "CW-25",
		description: "Combination microwave with grill and crisp function.",
		category:    "kitchen", color: "white", price: 159.00,
		energyRating: "A", madeIn: "Poland", warranty: "2 years",
		features: []string{"grill", "crisp plate", "child lock"},
	},
	{
		name: "PureAir Purifier HEPA13", brand: "Atmos", model: "PA-H13",
		description: "Air purifier with true HEPA filter for rooms up to 60 sqm.",
		category:    "climate", color: "white", price: 229.00,
		energyRating: "A+", madeIn: "Japan", warranty: "3 years",
		features: []string{"HEPA 13", "air quality sensor", "night mode"},
	},
	{
		name: "QuietCool Fan Tower", brand: "Atmos", model: "QC-T1",
		description: "Oscillating tower fan with remote control and timer.",
		category:    "climate", color: "grey", price: 74.90,
		energyRating: "A", madeIn: "China", warranty: "1 year",
		features: []string{"remote control", "timer", "three speeds"},
	},
	{
		name: "UltraView TV 55", brand: "Lumina", model: "UV-55Q",
		description: "55 inch 4K QLED television with built-in streaming apps.",
		category:    "electronics", color: "black", price: 649.00,
		energyRating: "B", madeIn: "Vietnam", warranty: "2 years",
		features: []string{"4K QLED", "HDR10+", "voice remote"},
	},
	{
		name: "SoundBar Duo 300", brand: "Lumina", model: "SB-300",
		description: "2.1 channel soundbar with wireless subwoofer.",
		category:    "electronics", color: "black", price: 189.00,
		energyRating: "A", madeIn: "Vietnam", warranty: "2 years",
		features: []string{"wireless subwoofer", "bluetooth", "HDMI ARC"},
	},
	{
		name: "PowerWash 8kg", brand: "Koldex", model: "PW-8000",
		description: "Front loading washing machine with steam refresh cycle.",
		category:    "home-appliances", color: "white", price: 549.00,
		energyRating: "A+++", madeIn: "Turkey", warranty: "5 years",
		features: []string{"steam refresh", "quick wash", "1400 rpm"},
	},
	{
		name: "BrewMaster Espresso", brand: "Veltex", model: "BM-15B",
		description: "15 bar espresso machine with milk frother.",
		category:    "kitchen", color: "red", price: 139.00,
		energyRating: "A", madeIn: "Italy", warranty: "2 years",
		features: []string{"15 bar pump", "milk frother", "cup warmer"},
	},
}

var orderStatuses = []string{"processing", "shipped", "delivered"}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[seed] ")

	catalogURL := getEnv("CATALOG_URL", "http://localhost:8010")
	orderURL := getEnv("ORDER_URL", "http://localhost:8020")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// ---------------------------------------------------------------
	// 1. Seed products through the catalog API
	// ---------------------------------------------------------------
	log.Println("Seeding products...")
	productIDs := make([]string, 0, len(products))
	for _, p := range products {
		result, err := httpPost(catalogURL+"/products", map[string]any{
			"name":         p.name,
			"brand":        p.brand,
			"model":        p.model,
			"description":  p.description,
			"category":     p.category,
			"color":        p.color,
			"price":        p.price,
			"energyRating": p.energyRating,
			"madeIn":       p.madeIn,
			"warranty":     p.warranty,
			"features":     p.features,
		})
		if err != nil {
			log.Fatalf("create product %q: %v", p.name, err)
		}
		id, _ := dataField(result)["id"].(string)
		if id == "" {
			log.Fatalf("create product %q: response has no id", p.name)
		}
		productIDs = append(productIDs, id)
		log.Printf("  product %-28s -> %s", p.name, id)
	}

	// ---------------------------------------------------------------
	// 2. Seed orders through the order API
	// ---------------------------------------------------------------
	log.Println("Seeding orders...")
	orderCount := 25
	for i := 0; i < orderCount; i++ {
		productID := productIDs[rng.Intn(len(productIDs))]
		customerID := fmt.Sprintf("customer-%03d", rng.Intn(8)+1)

		result, err := httpPost(orderURL+"/orders", map[string]any{
			"customerId": customerID,
			"productId":  productID,
		})
		if err != nil {
			log.Fatalf("create order for %s: %v", customerID, err)
		}
		orderID, _ := dataField(result)["id"].(string)
		if orderID == "" {
			log.Fatalf("create order for %s: response has no id", customerID)
		}

		// Move roughly two thirds of the orders past "pending" so the
		// search index holds a realistic status spread.
		if rng.Intn(3) > 0 {
			status := orderStatuses[rng.Intn(len(orderStatuses))]
			if _, err := httpPut(orderURL+"/orders/"+orderID+"/status", map[string]any{
				"status": status,
			}); err != nil {
				log.Fatalf("update order %s status: %v", orderID, err)
			}
		}
	}
	log.Printf("  created %d orders", orderCount)

	log.Println("Seed complete. Events propagate to the search index asynchronously;")
	log.Println("allow a few seconds before querying /search endpoints.")
}
