package session

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tebeka/selenium"
)

// fakeDriver implements only the parts of selenium.WebDriver that the harness uses; calling any
// other method panics.
type fakeDriver struct {
	selenium.WebDriver
	caps          selenium.Capabilities
	capsErr       error
	quitErr       error
	quits         int32
	screenshot    []byte
	screenshotErr error
	visible       map[string]bool
	visits        []string
	lock          sync.Mutex
}

func (d *fakeDriver) Quit() error {
	atomic.AddInt32(&d.quits, 1)
	return d.quitErr
}

func (d *fakeDriver) Capabilities() (selenium.Capabilities, error) {
	return d.caps, d.capsErr
}

func (d *fakeDriver) Screenshot() ([]byte, error) {
	return d.screenshot, d.screenshotErr
}

func (d *fakeDriver) Get(url string) error {
	d.lock.Lock()
	d.visits = append(d.visits, url)
	d.lock.Unlock()
	return nil
}

func (d *fakeDriver) FindElement(by, value string) (selenium.WebElement, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	shown, ok := d.visible[by+"="+value]
	if !ok {
		return nil, errors.New("no such element")
	}
	return fakeElement{displayed: shown}, nil
}

func (d *fakeDriver) setVisible(by, value string, shown bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.visible == nil {
		d.visible = make(map[string]bool)
	}
	d.visible[by+"="+value] = shown
}

type fakeElement struct {
	selenium.WebElement
	displayed bool
}

func (e fakeElement) IsDisplayed() (bool, error) { return e.displayed, nil }

// fakeFactory records the capabilities of each session it creates.
type fakeFactory struct {
	err     error
	created []*fakeDriver
	caps    []selenium.Capabilities
	urls    []string
	lock    sync.Mutex
}

func (f *fakeFactory) newDriver(caps selenium.Capabilities, serverURL string) (selenium.WebDriver, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.caps = append(f.caps, caps)
	f.urls = append(f.urls, serverURL)
	if f.err != nil {
		return nil, f.err
	}
	d := &fakeDriver{caps: selenium.Capabilities{"platformName": caps["platformName"]}}
	f.created = append(f.created, d)
	return d, nil
}
